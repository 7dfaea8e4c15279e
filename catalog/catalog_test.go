package catalog

import (
	"testing"

	fsmgen "github.com/goliatone/go-fsmgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customerCatalog = `
package: example.com/shop/customer
types:
  - name: Idle
    implements: [state]
    owner: "*example.com/shop/customer.Customer"
    constructors:
      - func: NewIdle
        params: ["*example.com/shop/customer.Customer", "*github.com/goliatone/go-fsmgen/fsm.StateMachine"]
  - name: Moving10
    implements: [state]
    owner: "*example.com/shop/customer.Customer"
  - name: Moving2
    implements: [state]
    owner: "*example.com/shop/other.Robot"
  - name: ArrivedCondition
    implements: [condition]
    constructors:
      - func: NewArrivedCondition
        params: ["example.com/shop/customer.Mover"]
  - name: AlwaysCondition
    type: "example.com/shop/shared.Always"
    implements: [condition]
  - name: Customer
    type: "*example.com/shop/customer.Customer"
    implements: []
    satisfies: ["example.com/shop/customer.Mover"]
`

func TestParseTypeRef(t *testing.T) {
	cases := []struct {
		in   string
		want TypeRef
	}{
		{in: "*example.com/a/b.Customer", want: TypeRef{Package: "example.com/a/b", Name: "Customer", Pointer: true}},
		{in: "pkg.Name", want: TypeRef{Package: "pkg", Name: "Name"}},
		{in: "any", want: TypeRef{Name: "any"}},
		{in: "example.com/v1.2/x.T", want: TypeRef{Package: "example.com/v1.2/x", Name: "T"}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTypeRef(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.in, got.String())
		})
	}

	_, err := ParseTypeRef("*")
	assert.Error(t, err)
	assert.Equal(t, fsmgen.ErrCodeParseFailed, fsmgen.ErrorCode(err))
	_, err = ParseTypeRef("pkg.")
	assert.True(t, fsmgen.HasCode(err, fsmgen.ErrCodeParseFailed))
	assert.Contains(t, err.Error(), `"pkg." has no name`)
}

func TestParseCatalogAppliesDefaultPackage(t *testing.T) {
	c, err := Parse([]byte(customerCatalog))
	require.NoError(t, err)

	idle, ok := c.ResolveExecutableBacking("Idle")
	require.True(t, ok)
	assert.Equal(t, TypeRef{Package: "example.com/shop/customer", Name: "Idle"}, idle.Type)

	always, ok := c.ResolveCondition("AlwaysCondition")
	require.True(t, ok)
	assert.Equal(t, "example.com/shop/shared", always.Type.Package)
	assert.Equal(t, "Always", always.Type.Name)
}

func TestResolveRespectsCapabilities(t *testing.T) {
	c, err := Parse([]byte(customerCatalog))
	require.NoError(t, err)

	_, ok := c.ResolveExecutableBacking("ArrivedCondition")
	assert.False(t, ok)
	_, ok = c.ResolveCondition("Idle")
	assert.False(t, ok)
	_, ok = c.ResolveExecutableBacking("Customer")
	assert.False(t, ok)
	_, ok = c.ResolveExecutableBacking("Unknown")
	assert.False(t, ok)
}

func TestAssignability(t *testing.T) {
	c, err := Parse([]byte(customerCatalog))
	require.NoError(t, err)

	customer := MustTypeRef("*example.com/shop/customer.Customer")
	mover := MustTypeRef("example.com/shop/customer.Mover")

	assert.True(t, c.IsAssignableFrom(customer, customer))
	assert.True(t, c.IsAssignableFrom(mover, customer))
	assert.True(t, c.IsAssignableFrom(MustTypeRef("any"), customer))
	assert.False(t, c.IsAssignableFrom(customer, mover))
	assert.False(t, c.IsAssignableFrom(MustTypeRef("*example.com/shop/other.Robot"), customer))
}

func TestListingsAndDiscovery(t *testing.T) {
	c, err := Parse([]byte(customerCatalog))
	require.NoError(t, err)

	assert.Equal(t, []string{"Idle", "Moving2", "Moving10"}, c.Names(CapabilityState))
	assert.Equal(t, []string{"ArrivedCondition", "AlwaysCondition"}, Names(c, CapabilityCondition))

	owned := StatesFor(c, MustTypeRef("*example.com/shop/customer.Customer"))
	require.Len(t, owned, 2)
	assert.Equal(t, "Idle", owned[0].Name)
	assert.Equal(t, "Moving10", owned[1].Name)

	shapes := c.FindConstructorShapes(owned[0])
	require.Len(t, shapes, 1)
	assert.Equal(t, 2, shapes[0].Arity())
	assert.Nil(t, c.FindConstructorShapes(owned[1]))
}

func TestCatalogRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"duplicate":       "types:\n  - name: A\n    implements: [state]\n  - name: A\n    implements: [state]\n",
		"empty name":      "types:\n  - name: ''\n    implements: [state]\n",
		"bad capability":  "types:\n  - name: A\n    implements: [widget]\n",
		"literal w/ args": "types:\n  - name: A\n    implements: [condition]\n    constructors:\n      - params: [int]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, fsmgen.HasCode(err, fsmgen.ErrCodeInvalidCatalog))
		})
	}
}
