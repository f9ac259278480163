package luahost

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func TestMailAddressGetters(t *testing.T) {
	want := &mail.Address{
		Name:    "Roberto I",
		Address: "ri@example.com",
	}
	script := `
		assert(addr, "addr should not be nil")

		want = "Roberto I"
		got = addr.name
		assert(got == want, string.format("got name %q, want %q", got, want))

		want = "ri@example.com"
		got = addr.address
		assert(got == want, string.format("got address %q, want %q", got, want))
	`

	ls := lua.NewState()
	registerMailAddressType(ls)
	ls.SetGlobal("addr", wrapMailAddress(ls, want))
	require.NoError(t, ls.DoString(script))
}

func TestMailAddressSetters(t *testing.T) {
	want := &mail.Address{
		Name:    "Roberto I",
		Address: "ri@example.com",
	}
	script := `
		assert(addr, "addr should not be nil")

		addr.name = "Roberto I"
		addr.address = "ri@example.com"
	`

	got := &mail.Address{}
	ls := lua.NewState()
	registerMailAddressType(ls)
	ls.SetGlobal("addr", wrapMailAddress(ls, got))
	require.NoError(t, ls.DoString(script))

	assert.Equal(t, want, got)
}

func TestMailAddressListRoundTrip(t *testing.T) {
	want := []*mail.Address{
		{Name: "name1", Address: "addr1"},
		{Name: "name2", Address: "addr2"},
	}

	ls := lua.NewState()
	registerMailAddressType(ls)

	lt := wrapMailAddressList(ls, want)
	got := checkMailAddressList(lt)

	assert.Equal(t, want, got)
}

func TestMailAddressListSkipsOtherTypes(t *testing.T) {
	ls := lua.NewState()
	registerMailAddressType(ls)

	lt := &lua.LTable{}
	lt.Append(lua.LString("not an address"))
	lt.Append(wrapMailAddress(ls, &mail.Address{Name: "name1", Address: "addr1"}))
	lt.Append(lua.LNumber(42))

	got := checkMailAddressList(lt)
	require.Len(t, got, 1)
	assert.Equal(t, "addr1", got[0].Address)
}
