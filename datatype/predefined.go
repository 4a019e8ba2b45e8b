package datatype

import "github.com/tnunnink/LogixHelper/logix"

// StringCapacity is the capacity of the predefined STRING type.
const StringCapacity = 82

// Predefined type names.
const (
	NameString  = "STRING"
	NameTimer   = "TIMER"
	NameCounter = "COUNTER"
	NameControl = "CONTROL"
)

// PredefinedString returns a fresh predefined STRING.
func PredefinedString() *String {
	s, err := newString(NameString, StringCapacity, "", ClassPredefined)
	if err != nil {
		panic(err)
	}
	return s
}

// Timer returns a fresh predefined TIMER.
func Timer() *Structure {
	return predefined(NameTimer,
		dint("PRE"), dint("ACC"),
		bit("EN"), bit("TT"), bit("DN"),
	)
}

// Counter returns a fresh predefined COUNTER.
func Counter() *Structure {
	return predefined(NameCounter,
		dint("PRE"), dint("ACC"),
		bit("CU"), bit("CD"), bit("DN"), bit("OV"), bit("UN"),
	)
}

// Control returns a fresh predefined CONTROL.
func Control() *Structure {
	return predefined(NameControl,
		dint("LEN"), dint("POS"),
		bit("EN"), bit("EU"), bit("DN"), bit("EM"), bit("ER"), bit("UL"), bit("IN"), bit("FD"),
	)
}

// Predefined returns fresh instances of every predefined type.
func Predefined() []DataType {
	return []DataType{PredefinedString(), Timer(), Counter(), Control()}
}

func predefined(name string, members ...*Member) *Structure {
	return &Structure{name: name, class: ClassPredefined, members: members}
}

func dint(name string) *Member {
	return MustMember(name, NewAtomic(logix.KindDINT))
}

func bit(name string) *Member {
	return MustMember(name, NewAtomic(logix.KindBOOL))
}
