package luahost

import (
	"net/mail"

	lua "github.com/yuin/gopher-lua"
)

const mailAddressName = "address"

func registerMailAddressType(ls *lua.LState) {
	mt := ls.NewTypeMetatable(mailAddressName)
	ls.SetGlobal(mailAddressName, mt)

	// Static attributes.
	ls.SetField(mt, "new", ls.NewFunction(newMailAddress))

	// Methods.
	ls.SetField(mt, "__index", ls.NewFunction(mailAddressIndex))
	ls.SetField(mt, "__newindex", ls.NewFunction(mailAddressNewIndex))
}

func newMailAddress(ls *lua.LState) int {
	val := &mail.Address{
		Name:    ls.CheckString(1),
		Address: ls.CheckString(2),
	}
	ud := wrapMailAddress(ls, val)
	ls.Push(ud)

	return 1
}

func wrapMailAddress(ls *lua.LState, val *mail.Address) *lua.LUserData {
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(mailAddressName))

	return ud
}

// wrapMailAddressOrNil wraps a may-be-nil address; drafts and constructed
// events can lack a sender.
func wrapMailAddressOrNil(ls *lua.LState, val *mail.Address) lua.LValue {
	if val == nil {
		return lua.LNil
	}

	return wrapMailAddress(ls, val)
}

// wrapMailAddressList marshals an address list into a Lua table.
func wrapMailAddressList(ls *lua.LState, list []*mail.Address) *lua.LTable {
	lt := &lua.LTable{}
	for _, v := range list {
		lt.Append(wrapMailAddress(ls, v))
	}

	return lt
}

// checkMailAddressList unmarshals a Lua table of addresses, skipping entries
// of other types.
func checkMailAddressList(lt *lua.LTable) []*mail.Address {
	list := make([]*mail.Address, 0, 16)
	lt.ForEach(func(k, lv lua.LValue) {
		if ud, ok := lv.(*lua.LUserData); ok {
			if entry, ok := unwrapMailAddress(ud); ok {
				list = append(list, entry)
			}
		}
	})

	return list
}

func unwrapMailAddress(ud *lua.LUserData) (*mail.Address, bool) {
	val, ok := ud.Value.(*mail.Address)
	return val, ok
}

func checkMailAddress(ls *lua.LState, pos int) *mail.Address {
	ud := ls.CheckUserData(pos)
	if val, ok := ud.Value.(*mail.Address); ok {
		return val
	}
	ls.ArgError(pos, mailAddressName+" expected")
	return nil
}

// address getter.
func mailAddressIndex(ls *lua.LState) int {
	val := checkMailAddress(ls, 1)
	field := ls.CheckString(2)

	// Push the requested field's value onto the stack.
	switch field {
	case "address":
		ls.Push(lua.LString(val.Address))
	case "name":
		ls.Push(lua.LString(val.Name))
	default:
		// Unknown field.
		ls.Push(lua.LNil)
	}

	return 1
}

// address setter.
func mailAddressNewIndex(ls *lua.LState) int {
	val := checkMailAddress(ls, 1)
	index := ls.CheckString(2)

	switch index {
	case "address":
		val.Address = ls.CheckString(3)
	case "name":
		val.Name = ls.CheckString(3)
	default:
		ls.RaiseError("invalid address index %q", index)
	}

	return 0
}
