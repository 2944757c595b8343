package reconmem

import (
	"fmt"
)

// Insert is a request to store one entity. The set of implementations is
// closed: one New* type per family.
type Insert interface {
	family() Family
}

// Update is a request to patch one stored row by id. One *Update type per
// family that has mutable fields.
type Update interface {
	family() Family
	ident() int64
}

type preparer interface {
	prepare() (Insert, error)
}

type validator interface {
	validate() error
}

type autoscoper interface {
	autoscope(r *Rules) bool
}

// Insert validates obj, decides its scope and stores it.
func (s *Store) Insert(obj Insert) (Result, error) {
	var res Result
	err := s.tx(func(q Queryer) error {
		var err error
		res, err = s.insert(q, obj)
		return err
	})
	return res, err
}

// InsertTTL is Insert for entities that expire. A fresh row gets a ttl of
// ttl seconds; an existing one has its ttl pushed forward if it has one.
func (s *Store) InsertTTL(obj Insert, ttl int64) (Result, error) {
	var res Result
	err := s.tx(func(q Queryer) error {
		var err error
		res, err = s.insert(q, obj)
		if err != nil {
			return err
		}

		table := obj.family().Table()
		switch res.Outcome {
		case Inserted:
			return s.createTTL(q, table, res.ID, ttl)
		case Updated, Unchanged:
			return s.bumpTTL(q, table, res.ID, ttl)
		default:
			return nil
		}
	})
	return res, err
}

func (s *Store) insert(q Queryer, obj Insert) (Result, error) {
	if p, ok := obj.(preparer); ok {
		prepared, err := p.prepare()
		if err != nil {
			return Result{}, err
		}
		obj = prepared
	}

	scoped := true
	if a, ok := obj.(autoscoper); ok {
		scoped = a.autoscope(s.rules)
	}

	switch o := obj.(type) {
	case NewDomain:
		return upsert(q, Domains, o, scoped)
	case NewSubdomain:
		return upsert(q, Subdomains, o, scoped)
	case NewIpAddr:
		return upsert(q, IpAddrs, o, scoped)
	case NewURL:
		return upsert(q, URLs, o, scoped)
	case NewEmail:
		return upsert(q, Emails, o, scoped)
	case NewPhoneNumber:
		return upsert(q, PhoneNumbers, o, scoped)
	case NewDevice:
		return upsert(q, Devices, o, scoped)
	case NewNetwork:
		return upsert(q, Networks, o, scoped)
	case NewAccount:
		return upsert(q, Accounts, o, scoped)
	case NewBreach:
		return upsert(q, Breaches, o, scoped)
	case NewImage:
		return upsert(q, Images, o, scoped)
	case NewPort:
		return upsert(q, Ports, o, scoped)
	case NewNetblock:
		return upsert(q, Netblocks, o, scoped)
	case NewCryptoAddr:
		return upsert(q, CryptoAddrs, o, scoped)
	case NewSubdomainIpAddr:
		return o.insert(q)
	case NewNetworkDevice:
		return o.insert(q)
	case NewBreachEmail:
		return o.insert(q)
	default:
		return Result{}, fmt.Errorf("%w: insert %T", ErrUnsupported, obj)
	}
}

// Update applies an explicit patch using the same field policies as Insert.
func (s *Store) Update(u Update) (Result, error) {
	var res Result
	err := s.tx(func(q Queryer) error {
		var err error
		res, err = s.update(q, u)
		return err
	})
	return res, err
}

func (s *Store) update(q Queryer, u Update) (Result, error) {
	if v, ok := u.(validator); ok {
		if err := v.validate(); err != nil {
			return Result{}, err
		}
	}

	id := u.ident()

	switch o := u.(type) {
	case SubdomainUpdate:
		return patch(q, Subdomains, id, o)
	case IpAddrUpdate:
		return patch(q, IpAddrs, id, o)
	case URLUpdate:
		return patch(q, URLs, id, o)
	case EmailUpdate:
		return patch(q, Emails, id, o)
	case PhoneNumberUpdate:
		return patch(q, PhoneNumbers, id, o)
	case DeviceUpdate:
		return patch(q, Devices, id, o)
	case NetworkUpdate:
		return patch(q, Networks, id, o)
	case AccountUpdate:
		return patch(q, Accounts, id, o)
	case ImageUpdate:
		return patch(q, Images, id, o)
	case PortUpdate:
		return patch(q, Ports, id, o)
	case NetblockUpdate:
		return patch(q, Netblocks, id, o)
	case CryptoAddrUpdate:
		return patch(q, CryptoAddrs, id, o)
	case BreachEmailUpdate:
		return patch(q, BreachEmails, id, o)
	default:
		return Result{}, fmt.Errorf("%w: update %T", ErrUnsupported, u)
	}
}

func lookup(f Family) (anyTable, error) {
	t, ok := registry[f]
	if !ok {
		return nil, fmt.Errorf("%w: unknown family %q", ErrInvalidValue, f)
	}
	return t, nil
}

// Select returns the rows of family f matching filter. Rows are the
// concrete row types, e.g. Domain for FamilyDomain.
func (s *Store) Select(f Family, filter Filter) ([]any, error) {
	t, err := lookup(f)
	if err != nil {
		return nil, err
	}
	return t.listAny(s.db, filter)
}

// ScopeFamily marks the rows of f matching filter as in scope.
func (s *Store) ScopeFamily(f Family, filter Filter) (int64, error) {
	return s.setScope(f, filter, true)
}

// NoscopeFamily marks the rows of f matching filter as out of scope.
func (s *Store) NoscopeFamily(f Family, filter Filter) (int64, error) {
	return s.setScope(f, filter, false)
}

func (s *Store) setScope(f Family, filter Filter, scoped bool) (int64, error) {
	t, err := lookup(f)
	if err != nil {
		return 0, err
	}
	if !t.scopable() {
		return 0, fmt.Errorf("%w: %s", ErrNotScopable, f)
	}

	var n int64
	err = s.tx(func(q Queryer) error {
		var err error
		n, err = t.scopeWhere(q, filter, scoped)
		return err
	})
	return n, err
}

// DeleteFamily deletes the rows of f matching filter.
func (s *Store) DeleteFamily(f Family, filter Filter) (int64, error) {
	t, err := lookup(f)
	if err != nil {
		return 0, err
	}

	var n int64
	err = s.tx(func(q Queryer) error {
		var err error
		n, err = t.deleteWhere(q, filter)
		return err
	})
	return n, err
}

// DeleteID deletes one row of f by id.
func (s *Store) DeleteID(f Family, id int64) (int64, error) {
	t, err := lookup(f)
	if err != nil {
		return 0, err
	}

	var n int64
	err = s.tx(func(q Queryer) error {
		var err error
		n, err = t.deleteByID(q, id)
		return err
	})
	return n, err
}

// LookupID resolves the natural key of a family to its row id. Join
// families have no single key and fail with ErrUnsupported.
func (s *Store) LookupID(f Family, key string) (int64, error) {
	t, err := lookup(f)
	if err != nil {
		return 0, err
	}
	return t.idForKey(s.db, key)
}
