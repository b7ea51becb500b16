package service

import (
	"github.com/freeeve/techsim/internal/model"
	"github.com/freeeve/techsim/pkg/techsim"
)

// narrate converts an engine report into the stored, name-based narration.
func narrate(sim *techsim.Simulation, r *techsim.CycleReport) model.Narration {
	n := model.Narration{
		Index:    r.Index,
		Cycle:    r.Cycle,
		Text:     r.Text,
		Night:    r.Night,
		Events:   make([]model.EventLine, 0, len(r.Events)),
		Idle:     names(sim, r.Idle),
		Complete: r.Complete,
		Winners:  names(sim, r.Winners),
	}
	for _, out := range r.Events {
		n.Events = append(n.Events, model.EventLine{
			Text:         out.Text(),
			Participants: names(sim, out.Participants),
			Deaths:       names(sim, out.Deaths),
		})
	}
	if r.Deaths != nil {
		n.DeathReport = &model.DeathReport{Day: r.Deaths.Day, Text: r.Deaths.Text, Fallen: names(sim, r.Deaths.Deaths)}
	}
	if r.WinningDistrict != techsim.NoDistrict {
		n.WinningDistrict = sim.District(r.WinningDistrict).Name
	}
	return n
}

func names(sim *techsim.Simulation, ids []techsim.TributeID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = sim.Tribute(id).Name
	}
	return out
}

func deathCount(r *techsim.CycleReport) int {
	n := 0
	for _, out := range r.Events {
		n += len(out.Deaths)
	}
	return n
}
