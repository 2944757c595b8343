package reconmem

import (
	"encoding/hex"
	"strings"
)

// Image rows are keyed by the sha256 of the image body. The body itself is
// kept outside the database.
type Image struct {
	Entity
	Filename  *string  `db:"filename"`
	Mime      *string  `db:"mime"`
	Width     *int64   `db:"width"`
	Height    *int64   `db:"height"`
	Created   *Time    `db:"created"`
	Latitude  *float64 `db:"latitude"`
	Longitude *float64 `db:"longitude"`
	Nudity    *float64 `db:"nudity"`
	Ahash     *string  `db:"ahash"`
	Dhash     *string  `db:"dhash"`
	Phash     *string  `db:"phash"`
}

type NewImage struct {
	Value     string   `db:"value"`
	Filename  *string  `db:"filename"`
	Mime      *string  `db:"mime"`
	Width     *int64   `db:"width"`
	Height    *int64   `db:"height"`
	Created   *Time    `db:"created"`
	Latitude  *float64 `db:"latitude"`
	Longitude *float64 `db:"longitude"`
	Nudity    *float64 `db:"nudity"`
	Ahash     *string  `db:"ahash"`
	Dhash     *string  `db:"dhash"`
	Phash     *string  `db:"phash"`
	Unscoped  bool     `db:"unscoped"`
}

type ImageUpdate struct {
	ID        int64    `db:"id"`
	Filename  *string  `db:"filename"`
	Mime      *string  `db:"mime"`
	Width     *int64   `db:"width"`
	Height    *int64   `db:"height"`
	Created   *Time    `db:"created"`
	Latitude  *float64 `db:"latitude"`
	Longitude *float64 `db:"longitude"`
	Nudity    *float64 `db:"nudity"`
	Ahash     *string  `db:"ahash"`
	Dhash     *string  `db:"dhash"`
	Phash     *string  `db:"phash"`
}

var Images = Table[Image]{Family: FamilyImage, Name: "images", Scopable: true}

func (n NewImage) Key() string    { return n.Value }
func (n NewImage) family() Family { return FamilyImage }

func (n NewImage) prepare() (Insert, error) {
	n.Value = strings.ToLower(n.Value)
	if b, err := hex.DecodeString(n.Value); err != nil || len(b) != 32 {
		return nil, invalid("image value %q is not a sha256 hex digest", n.Value)
	}
	return n, nil
}

func (u ImageUpdate) family() Family { return FamilyImage }
func (u ImageUpdate) ident() int64   { return u.ID }
