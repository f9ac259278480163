package luahost

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

const (
	mailbridgeName       = "mailbridge"
	mailbridgeAfterName  = "mailbridge_after"
	mailbridgeBeforeName = "mailbridge_before"
)

// Mailbridge holds the hook functions a script has registered on the
// mailbridge global.
type Mailbridge struct {
	After  MailbridgeAfterFuncs
	Before MailbridgeBeforeFuncs
}

type MailbridgeAfterFuncs struct {
	MessageSent *lua.LFunction
	NewMail     *lua.LFunction
}

type MailbridgeBeforeFuncs struct {
	MessageSent  *lua.LFunction
	SendAccepted *lua.LFunction
}

func registerMailbridgeTypes(ls *lua.LState) {
	// mailbridge type.
	mt := ls.NewTypeMetatable(mailbridgeName)
	ls.SetField(mt, "__index", ls.NewFunction(mailbridgeIndex))

	// mailbridge.after type.
	mt = ls.NewTypeMetatable(mailbridgeAfterName)
	ls.SetField(mt, "__index", ls.NewFunction(mailbridgeAfterIndex))
	ls.SetField(mt, "__newindex", ls.NewFunction(mailbridgeAfterNewIndex))

	// mailbridge.before type.
	mt = ls.NewTypeMetatable(mailbridgeBeforeName)
	ls.SetField(mt, "__index", ls.NewFunction(mailbridgeBeforeIndex))
	ls.SetField(mt, "__newindex", ls.NewFunction(mailbridgeBeforeNewIndex))

	// mailbridge global.
	ud := wrapMailbridge(ls, &Mailbridge{})
	ls.SetGlobal(mailbridgeName, ud)
}

func wrapMailbridge(ls *lua.LState, val *Mailbridge) *lua.LUserData {
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(mailbridgeName))

	return ud
}

func wrapMailbridgeAfter(ls *lua.LState, val *MailbridgeAfterFuncs) *lua.LUserData {
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(mailbridgeAfterName))

	return ud
}

func wrapMailbridgeBefore(ls *lua.LState, val *MailbridgeBeforeFuncs) *lua.LUserData {
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(mailbridgeBeforeName))

	return ud
}

func getMailbridge(ls *lua.LState) (*Mailbridge, error) {
	lv := ls.GetGlobal(mailbridgeName)

	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return nil, fmt.Errorf("mailbridge global was type %s instead of UserData", lv.Type())
	}

	val, ok := ud.Value.(*Mailbridge)
	if !ok {
		return nil, fmt.Errorf("mailbridge global (%v) could not be cast", ud.Value)
	}

	return val, nil
}

func checkMailbridge(ls *lua.LState, pos int) *Mailbridge {
	ud := ls.CheckUserData(pos)
	if val, ok := ud.Value.(*Mailbridge); ok {
		return val
	}
	ls.ArgError(pos, mailbridgeName+" expected")
	return nil
}

func checkMailbridgeAfter(ls *lua.LState, pos int) *MailbridgeAfterFuncs {
	ud := ls.CheckUserData(pos)
	if val, ok := ud.Value.(*MailbridgeAfterFuncs); ok {
		return val
	}
	ls.ArgError(pos, mailbridgeAfterName+" expected")
	return nil
}

func checkMailbridgeBefore(ls *lua.LState, pos int) *MailbridgeBeforeFuncs {
	ud := ls.CheckUserData(pos)
	if val, ok := ud.Value.(*MailbridgeBeforeFuncs); ok {
		return val
	}
	ls.ArgError(pos, mailbridgeBeforeName+" expected")
	return nil
}

// mailbridge getter.
func mailbridgeIndex(ls *lua.LState) int {
	mb := checkMailbridge(ls, 1)
	field := ls.CheckString(2)

	// Push the requested field's value onto the stack.
	switch field {
	case "after":
		ls.Push(wrapMailbridgeAfter(ls, &mb.After))
	case "before":
		ls.Push(wrapMailbridgeBefore(ls, &mb.Before))
	default:
		// Unknown field.
		ls.Push(lua.LNil)
	}

	return 1
}

// mailbridge.after getter.
func mailbridgeAfterIndex(ls *lua.LState) int {
	after := checkMailbridgeAfter(ls, 1)
	field := ls.CheckString(2)

	// Push the requested field's value onto the stack.
	switch field {
	case "message_sent":
		ls.Push(funcOrNil(after.MessageSent))
	case "new_mail":
		ls.Push(funcOrNil(after.NewMail))
	default:
		// Unknown field.
		ls.Push(lua.LNil)
	}

	return 1
}

// mailbridge.after setter.
func mailbridgeAfterNewIndex(ls *lua.LState) int {
	after := checkMailbridgeAfter(ls, 1)
	index := ls.CheckString(2)

	switch index {
	case "message_sent":
		after.MessageSent = ls.CheckFunction(3)
	case "new_mail":
		after.NewMail = ls.CheckFunction(3)
	default:
		ls.RaiseError("invalid mailbridge.after index %q", index)
	}

	return 0
}

// mailbridge.before getter.
func mailbridgeBeforeIndex(ls *lua.LState) int {
	before := checkMailbridgeBefore(ls, 1)
	field := ls.CheckString(2)

	// Push the requested field's value onto the stack.
	switch field {
	case "message_sent":
		ls.Push(funcOrNil(before.MessageSent))
	case "send_accepted":
		ls.Push(funcOrNil(before.SendAccepted))
	default:
		// Unknown field.
		ls.Push(lua.LNil)
	}

	return 1
}

// mailbridge.before setter.
func mailbridgeBeforeNewIndex(ls *lua.LState) int {
	before := checkMailbridgeBefore(ls, 1)
	index := ls.CheckString(2)

	switch index {
	case "message_sent":
		before.MessageSent = ls.CheckFunction(3)
	case "send_accepted":
		before.SendAccepted = ls.CheckFunction(3)
	default:
		ls.RaiseError("invalid mailbridge.before index %q", index)
	}

	return 0
}

func funcOrNil(f *lua.LFunction) lua.LValue {
	if f == nil {
		return lua.LNil
	}

	return f
}
