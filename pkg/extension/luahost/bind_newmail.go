package luahost

import (
	"github.com/mailbridge/mailbridge/pkg/extension/event"
	lua "github.com/yuin/gopher-lua"
)

const newMailName = "new_mail"

func registerNewMailType(ls *lua.LState) {
	mt := ls.NewTypeMetatable(newMailName)
	ls.SetGlobal(newMailName, mt)

	// Static attributes.
	ls.SetField(mt, "new", ls.NewFunction(newNewMail))

	// Methods.
	ls.SetField(mt, "__index", ls.NewFunction(newMailIndex))
	ls.SetField(mt, "__newindex", ls.NewFunction(newMailNewIndex))
}

func newNewMail(ls *lua.LState) int {
	val := &event.NewMail{}
	ud := wrapNewMail(ls, val)
	ls.Push(ud)

	return 1
}

func wrapNewMail(ls *lua.LState, val *event.NewMail) *lua.LUserData {
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(newMailName))

	return ud
}

func checkNewMail(ls *lua.LState, pos int) *event.NewMail {
	ud := ls.CheckUserData(pos)
	if v, ok := ud.Value.(*event.NewMail); ok {
		return v
	}
	ls.ArgError(pos, newMailName+" expected")
	return nil
}

// new_mail getter.
func newMailIndex(ls *lua.LState) int {
	nm := checkNewMail(ls, 1)
	field := ls.CheckString(2)

	// Push the requested field's value onto the stack.
	switch field {
	case "mailbox":
		ls.Push(lua.LString(nm.Mailbox))
	case "messages":
		lt := &lua.LTable{}
		for i := range nm.Messages {
			lt.Append(wrapMessageMetadata(ls, &nm.Messages[i]))
		}
		ls.Push(lt)
	default:
		// Unknown field.
		ls.Push(lua.LNil)
	}

	return 1
}

// new_mail setter.
func newMailNewIndex(ls *lua.LState) int {
	nm := checkNewMail(ls, 1)
	index := ls.CheckString(2)

	switch index {
	case "mailbox":
		nm.Mailbox = ls.CheckString(3)
	case "messages":
		lt := ls.CheckTable(3)
		msgs := make([]event.MessageMetadata, 0, 16)
		lt.ForEach(func(k, lv lua.LValue) {
			if ud, ok := lv.(*lua.LUserData); ok {
				if entry, ok := unwrapMessageMetadata(ud); ok {
					msgs = append(msgs, *entry)
				}
			}
		})
		nm.Messages = msgs
	default:
		ls.RaiseError("invalid index %q", index)
	}

	return 0
}
