package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

var ErrEmptyMinterm = errors.New("permission minterm must contain at least one role")

// MangoPermission is an OR of AND-minterms over role xids. A holder satisfies
// it when its role set contains every role of at least one minterm.
//
// Values are immutable: every operation that changes the expression returns a
// new value. Minterms are kept sorted and deduplicated so Equal is structural.
type MangoPermission struct {
	minterms [][]string
}

// NewMangoPermission builds a canonical expression. An empty minterm is
// rejected since it would be satisfied by everyone.
func NewMangoPermission(minterms ...[]string) (*MangoPermission, error) {
	canonical, err := canonicalize(minterms)
	if err != nil {
		return nil, err
	}
	return &MangoPermission{minterms: canonical}, nil
}

// MustMangoPermission panics on invalid input. Meant for literals.
func MustMangoPermission(minterms ...[]string) *MangoPermission {
	p, err := NewMangoPermission(minterms...)
	if err != nil {
		panic(err)
	}
	return p
}

// EmptyPermission denies everyone but superadmin.
func EmptyPermission() *MangoPermission {
	return &MangoPermission{}
}

// RequireAnyRole is satisfied by a holder of any one of the roles.
func RequireAnyRole(xids ...string) *MangoPermission {
	minterms := make([][]string, 0, len(xids))
	for _, xid := range xids {
		if xid == "" {
			continue
		}
		minterms = append(minterms, []string{xid})
	}
	return MustMangoPermission(minterms...)
}

func canonicalize(minterms [][]string) ([][]string, error) {
	seen := make(map[string]struct{}, len(minterms))
	out := make([][]string, 0, len(minterms))
	for _, m := range minterms {
		set := make(map[string]struct{}, len(m))
		for _, xid := range m {
			xid = strings.TrimSpace(xid)
			if xid == "" {
				continue
			}
			set[xid] = struct{}{}
		}
		if len(set) == 0 {
			return nil, ErrEmptyMinterm
		}
		term := make([]string, 0, len(set))
		for xid := range set {
			term = append(term, xid)
		}
		sort.Strings(term)
		key := strings.Join(term, "\x00")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, term)
	}
	sort.Slice(out, func(i, j int) bool {
		return lessTerm(out[i], out[j])
	})
	return out, nil
}

func lessTerm(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// Minterms returns a copy of the minterms.
func (p *MangoPermission) Minterms() [][]string {
	if p == nil {
		return nil
	}
	out := make([][]string, len(p.minterms))
	for i, m := range p.minterms {
		out[i] = append([]string(nil), m...)
	}
	return out
}

// Roles returns every role referenced by any minterm, sorted.
func (p *MangoPermission) Roles() []string {
	if p == nil {
		return nil
	}
	set := make(map[string]struct{})
	for _, m := range p.minterms {
		for _, xid := range m {
			set[xid] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for xid := range set {
		out = append(out, xid)
	}
	sort.Strings(out)
	return out
}

func (p *MangoPermission) ContainsRole(xid string) bool {
	if p == nil {
		return false
	}
	for _, m := range p.minterms {
		for _, r := range m {
			if r == xid {
				return true
			}
		}
	}
	return false
}

func (p *MangoPermission) IsEmpty() bool {
	return p == nil || len(p.minterms) == 0
}

// WithoutRole removes xid from every minterm. Minterms left empty are dropped
// rather than kept, so the result never grants more than the receiver did.
func (p *MangoPermission) WithoutRole(xid string) *MangoPermission {
	if p == nil {
		return nil
	}
	kept := make([][]string, 0, len(p.minterms))
	for _, m := range p.minterms {
		term := make([]string, 0, len(m))
		for _, r := range m {
			if r != xid {
				term = append(term, r)
			}
		}
		if len(term) > 0 {
			kept = append(kept, term)
		}
	}
	// re-canonicalize: removing a role can make two minterms identical
	canonical, _ := canonicalize(kept)
	return &MangoPermission{minterms: canonical}
}

func (p *MangoPermission) Equal(other *MangoPermission) bool {
	if p == nil || other == nil {
		return p == nil && other == nil
	}
	if len(p.minterms) != len(other.minterms) {
		return false
	}
	for i := range p.minterms {
		if len(p.minterms[i]) != len(other.minterms[i]) {
			return false
		}
		for j := range p.minterms[i] {
			if p.minterms[i][j] != other.minterms[i][j] {
				return false
			}
		}
	}
	return true
}

func (p *MangoPermission) String() string {
	if p == nil {
		return "<nil>"
	}
	terms := make([]string, len(p.minterms))
	for i, m := range p.minterms {
		terms[i] = "(" + strings.Join(m, " AND ") + ")"
	}
	return strings.Join(terms, " OR ")
}

func (p MangoPermission) MarshalJSON() ([]byte, error) {
	if p.minterms == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.minterms)
}

func (p *MangoPermission) UnmarshalJSON(data []byte) error {
	var raw [][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("permission must be an array of role arrays: %w", err)
	}
	canonical, err := canonicalize(raw)
	if err != nil {
		return err
	}
	p.minterms = canonical
	return nil
}

func (p MangoPermission) MarshalBSONValue() (bsontype.Type, []byte, error) {
	minterms := p.minterms
	if minterms == nil {
		minterms = [][]string{}
	}
	return bson.MarshalValue(minterms)
}

func (p *MangoPermission) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var raw [][]string
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&raw); err != nil {
		return err
	}
	canonical, err := canonicalize(raw)
	if err != nil {
		return err
	}
	p.minterms = canonical
	return nil
}
