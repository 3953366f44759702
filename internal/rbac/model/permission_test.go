package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestNewMangoPermission(t *testing.T) {
	t.Run("canonicalizes order and duplicates", func(t *testing.T) {
		p, err := NewMangoPermission([]string{"b", "a", "a"}, []string{"c"}, []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, p.Minterms())
	})

	t.Run("rejects empty minterm", func(t *testing.T) {
		_, err := NewMangoPermission([]string{"a"}, []string{})
		assert.ErrorIs(t, err, ErrEmptyMinterm)
	})

	t.Run("rejects minterm of blank xids", func(t *testing.T) {
		_, err := NewMangoPermission([]string{" ", ""})
		assert.ErrorIs(t, err, ErrEmptyMinterm)
	})

	t.Run("no minterms is the empty expression", func(t *testing.T) {
		p, err := NewMangoPermission()
		require.NoError(t, err)
		assert.True(t, p.IsEmpty())
	})
}

func TestMangoPermissionHelpers(t *testing.T) {
	anyOf := RequireAnyRole("x", "y")
	assert.Equal(t, [][]string{{"x"}, {"y"}}, anyOf.Minterms())

	all := MustMangoPermission([]string{"y", "x"})
	assert.Equal(t, [][]string{{"x", "y"}}, all.Minterms())

	assert.True(t, RequireAnyRole().IsEmpty())
	assert.Equal(t, []string{"x", "y"}, anyOf.Roles())
	assert.True(t, anyOf.ContainsRole("y"))
	assert.False(t, anyOf.ContainsRole("z"))
	assert.Equal(t, "(x) OR (y)", anyOf.String())
}

func TestMangoPermissionMintermsIsCopy(t *testing.T) {
	p := RequireAnyRole("a")
	m := p.Minterms()
	m[0][0] = "mutated"
	assert.Equal(t, [][]string{{"a"}}, p.Minterms())
}

func TestWithoutRole(t *testing.T) {
	t.Run("removes role and drops emptied minterms", func(t *testing.T) {
		p := MustMangoPermission([]string{"a", "b"}, []string{"a"}, []string{"c"})
		out := p.WithoutRole("a")
		assert.Equal(t, [][]string{{"b"}, {"c"}}, out.Minterms())
		// receiver is untouched
		assert.True(t, p.ContainsRole("a"))
	})

	t.Run("sole minterm removal gives empty expression", func(t *testing.T) {
		out := RequireAnyRole("read").WithoutRole("read")
		assert.True(t, out.IsEmpty())
	})

	t.Run("merges minterms that become identical", func(t *testing.T) {
		p := MustMangoPermission([]string{"a", "b"}, []string{"b", "c"})
		out := p.WithoutRole("a").WithoutRole("c")
		assert.Equal(t, [][]string{{"b"}}, out.Minterms())
	})

	t.Run("absent role is a no-op", func(t *testing.T) {
		p := RequireAnyRole("a")
		assert.True(t, p.Equal(p.WithoutRole("zzz")))
	})
}

func TestMangoPermissionEqual(t *testing.T) {
	a := MustMangoPermission([]string{"x", "y"}, []string{"z"})
	b := MustMangoPermission([]string{"z"}, []string{"y", "x"})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(RequireAnyRole("z")))
	assert.False(t, a.Equal(nil))

	var n *MangoPermission
	assert.True(t, n.Equal(nil))
}

func TestMangoPermissionJSON(t *testing.T) {
	var body struct {
		Read *MangoPermission `json:"read"`
		Edit *MangoPermission `json:"edit"`
	}
	err := json.Unmarshal([]byte(`{"read":[["b","a"],["c"]],"edit":null}`), &body)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, body.Read.Minterms())
	assert.Nil(t, body.Edit)

	out, err := json.Marshal(EmptyPermission())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(out))

	err = json.Unmarshal([]byte(`{"read":[[]]}`), &body)
	assert.ErrorIs(t, err, ErrEmptyMinterm)
}

func TestMangoPermissionBSON(t *testing.T) {
	type doc struct {
		Perm *MangoPermission `bson:"perm"`
	}
	raw, err := bson.Marshal(doc{Perm: MustMangoPermission([]string{"r2", "r1"})})
	require.NoError(t, err)

	var decoded doc
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, [][]string{{"r1", "r2"}}, decoded.Perm.Minterms())
}
