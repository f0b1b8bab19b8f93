package distaffstark

import (
	"github.com/vybium/distaff-stark/internal/distaffstark/air/program"
	"github.com/vybium/distaff-stark/internal/distaffstark/field"
	"github.com/vybium/distaff-stark/internal/distaffstark/rescue"
)

func hashAccAdapter(v0, v1, h field.Element) field.Element {
	return rescue.HashAcc(v0, v1, h)
}

func hashOpsAdapter(ops []field.Element) program.Tag {
	state := [4]field.Element{field.Zero, field.Zero, field.Zero, field.Zero}
	out := rescue.HashOps(state, ops)
	return program.Tag{out[0], out[1]}
}
