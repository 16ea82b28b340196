package config

import (
	"github.com/GharaibehR/Chief-of-Staff/coreengine/intent"
)

// Plan is the ordered list of capabilities to run and how to run them.
type Plan struct {
	Agents   []string `json:"agents"`
	Parallel bool     `json:"parallel"`
}

// Planner turns an Intent into a Plan using a RoutingTable.
type Planner struct {
	table *RoutingTable
}

// NewPlanner creates a Planner. A nil table uses DefaultRoutingTable.
func NewPlanner(table *RoutingTable) *Planner {
	if table == nil {
		table = DefaultRoutingTable()
	}
	return &Planner{table: table}
}

// Plan selects the first route for in.Name whose platform requirements are met.
func (p *Planner) Plan(in intent.Intent) Plan {
	for _, r := range p.table.Routes[in.Name] {
		if r.Matches(in) {
			return toPlan(r)
		}
	}
	return toPlan(p.table.Fallback)
}

// Table returns the routing table in use.
func (p *Planner) Table() *RoutingTable {
	return p.table
}

func toPlan(r Route) Plan {
	agents := make([]string, len(r.Agents))
	copy(agents, r.Agents)
	return Plan{Agents: agents, Parallel: r.Parallel}
}
