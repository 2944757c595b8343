package reconmem

import (
	"net/netip"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// RuleKind is the kind of object an autoscope rule matches.
type RuleKind string

const (
	RuleDomain RuleKind = "domain"
	RuleIP     RuleKind = "ip"
	RuleURL    RuleKind = "url"
)

// Rule decides the scope of newly discovered entities. Scoped false means
// matching entities are stored out of scope.
type Rule struct {
	ID     int64    `db:"id"`
	Kind   RuleKind `db:"object"`
	Value  string   `db:"value"`
	Scoped bool     `db:"scoped"`
}

// ParseRuleKind validates a rule kind typed by a user.
func ParseRuleKind(s string) (RuleKind, error) {
	switch k := RuleKind(strings.ToLower(s)); k {
	case RuleDomain, RuleIP, RuleURL:
		return k, nil
	default:
		return "", invalid("unknown rule kind %q", s)
	}
}

// normalize validates the rule and returns its canonical form.
func (r Rule) normalize() (Rule, error) {
	switch r.Kind {
	case RuleDomain:
		r.Value = strings.Trim(strings.ToLower(strings.TrimSpace(r.Value)), ".")
		if r.Value == "" {
			return r, invalid("domain rule is empty")
		}
	case RuleIP:
		p, err := parseRulePrefix(r.Value)
		if err != nil {
			return r, err
		}
		r.Value = p.String()
	case RuleURL:
		u, err := url.Parse(r.Value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return r, invalid("url rule %q must be absolute", r.Value)
		}
	default:
		return r, invalid("unknown rule kind %q", r.Kind)
	}
	return r, nil
}

// precision orders rules: the more specific rule wins.
func (r Rule) precision() int {
	switch r.Kind {
	case RuleDomain:
		return strings.Count(r.Value, ".") + 1
	case RuleIP:
		if p, err := netip.ParsePrefix(r.Value); err == nil {
			return p.Bits()
		}
	case RuleURL:
		return len(r.Value)
	}
	return 0
}

func parseRulePrefix(value string) (netip.Prefix, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "/") {
		p, err := netip.ParsePrefix(value)
		if err != nil {
			return netip.Prefix{}, invalid("ip rule %q: %v", value, err)
		}
		return p.Masked(), nil
	}
	addr, err := parseAddr(value)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Rules is the in-memory autoscope rule set owned by a Store. It is safe
// for concurrent use.
type Rules struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewRules builds a rule set; invalid rules are rejected.
func NewRules(rules ...Rule) (*Rules, error) {
	rs := &Rules{}
	for _, r := range rules {
		if err := rs.Add(r); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// Add inserts a rule or replaces the verdict of an existing rule with the same kind and value.
func (rs *Rules) Add(r Rule) error {
	r, err := r.normalize()
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	for i := range rs.rules {
		if rs.rules[i].Kind == r.Kind && rs.rules[i].Value == r.Value {
			rs.rules[i].Scoped = r.Scoped
			return nil
		}
	}

	rs.rules = append(rs.rules, r)
	sort.SliceStable(rs.rules, func(i, j int) bool {
		return rs.rules[i].precision() > rs.rules[j].precision()
	})
	return nil
}

// Remove drops a rule and reports whether it existed.
func (rs *Rules) Remove(kind RuleKind, value string) bool {
	r, err := Rule{Kind: kind, Value: value}.normalize()
	if err != nil {
		return false
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	for i := range rs.rules {
		if rs.rules[i].Kind == r.Kind && rs.rules[i].Value == r.Value {
			rs.rules = append(rs.rules[:i], rs.rules[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the rules, most specific first.
func (rs *Rules) List() []Rule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return append([]Rule(nil), rs.rules...)
}

// Domain reports whether a domain name is in scope.
func (rs *Rules) Domain(name string) bool {
	scoped, _ := rs.matchDomain(name)
	return scoped
}

// IP reports whether an address is in scope.
func (rs *Rules) IP(addr netip.Addr) bool {
	scoped, _ := rs.matchIP(addr)
	return scoped
}

// Netblock reports whether a netblock is in scope. A rule applies only if
// it covers the whole netblock.
func (rs *Rules) Netblock(p netip.Prefix) bool {
	p = p.Masked()
	scoped, _ := rs.match(RuleIP, func(r Rule) bool {
		rp, err := netip.ParsePrefix(r.Value)
		return err == nil && rp.Bits() <= p.Bits() && rp.Contains(p.Addr())
	})
	return scoped
}

// URL reports whether a url is in scope. URL rules are consulted first,
// then the host is checked against domain or ip rules.
func (rs *Rules) URL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return true
	}

	if scoped, ok := rs.match(RuleURL, func(r Rule) bool { return urlHasPrefix(u, r.Value) }); ok {
		return scoped
	}

	host := u.Hostname()
	if addr, err := netip.ParseAddr(host); err == nil {
		return rs.IP(addr.Unmap())
	}
	return rs.Domain(host)
}

func (rs *Rules) matchDomain(name string) (bool, bool) {
	name = strings.Trim(strings.ToLower(name), ".")
	return rs.match(RuleDomain, func(r Rule) bool {
		return name == r.Value || strings.HasSuffix(name, "."+r.Value)
	})
}

func (rs *Rules) matchIP(addr netip.Addr) (bool, bool) {
	return rs.match(RuleIP, func(r Rule) bool {
		p, err := netip.ParsePrefix(r.Value)
		return err == nil && p.Contains(addr)
	})
}

// match returns the verdict of the most specific rule of kind that matches.
// Without a match everything is in scope.
func (rs *Rules) match(kind RuleKind, matches func(Rule) bool) (scoped, ok bool) {
	if rs == nil {
		return true, false
	}

	rs.mu.RLock()
	defer rs.mu.RUnlock()

	for _, r := range rs.rules {
		if r.Kind == kind && matches(r) {
			return r.Scoped, true
		}
	}
	return true, false
}

func urlHasPrefix(u *url.URL, rule string) bool {
	ru, err := url.Parse(rule)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Scheme, ru.Scheme) || !strings.EqualFold(u.Host, ru.Host) {
		return false
	}
	return strings.HasPrefix(u.EscapedPath(), ru.EscapedPath())
}
