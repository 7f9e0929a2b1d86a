package debts_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iag-lol/gastosanuales-app/debts"
)

func TestFilter_Apply(t *testing.T) {
	now := at(2024, time.March, 10, 9)

	rent := obligation("rent", 450000, debts.StatusPending)
	rent.Name = "Arriendo"
	rent.Category = "Vivienda"
	rent.HouseholdMember = "ana"

	card := obligation("card", 180000, debts.StatusOverdue)
	card.Name = "Tarjeta"
	card.Description = "Crédito de consumo"
	card.HouseholdMember = "luis"

	power := obligation("power", 42000, debts.StatusPending)
	power.DueRule = debts.DueCustomDay
	power.CustomDueDay = 12
	power.Category = "Servicios"

	internet := obligation("internet", 29000, debts.StatusPaid)

	all := []debts.Obligation{rent, card, power, internet}

	tests := []struct {
		name   string
		filter debts.Filter
		want   []string
	}{
		{"zero filter keeps everything", debts.Filter{}, []string{"rent", "card", "power", "internet"}},
		{"statuses", debts.Filter{Statuses: []debts.Status{debts.StatusPending, debts.StatusPaid}}, []string{"rent", "power", "internet"}},
		{"paid and overdue", debts.Filter{Statuses: []debts.Status{debts.StatusPaid, debts.StatusOverdue}}, []string{"card", "internet"}},
		{"search matches description, any case", debts.Filter{Search: "  CRÉDITO "}, []string{"card"}},
		{"search matches name", debts.Filter{Search: "arri"}, []string{"rent"}},
		{"category is exact", debts.Filter{Category: "Vivienda"}, []string{"rent"}},
		{"member", debts.Filter{HouseholdMember: "luis"}, []string{"card"}},
		{"only critical drops ok tiers", debts.Filter{OnlyCritical: true}, []string{"card", "power"}},
		{"criteria combine", debts.Filter{OnlyCritical: true, Category: "Servicios"}, []string{"power"}},
		{"nothing matches", debts.Filter{Search: "gym"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(all, now)

			ids := []string{}
			for _, o := range got {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
