package contracts

import (
	"strings"

	"controladoria/internal"
	"controladoria/internal/money"
	"controladoria/internal/util"
)

// Contract is a raw contract row keyed by column name. Values keep whatever
// type the source produced, so every read goes through the lenient readers.
type Contract struct {
	fields map[string]any
}

func FromMap(fields map[string]any) Contract {
	if fields == nil {
		fields = map[string]any{}
	}
	return Contract{fields: fields}
}

func (c Contract) Get(key string) any {
	return c.fields[key]
}

func (c Contract) Text(key string) string {
	return strings.TrimSpace(money.Text(c.fields[key]))
}

func (c Contract) ID() string {
	return util.FirstNonEmpty(c.Text("id"), c.Text("display_id"), c.Text("seq_id"), c.Text("hon_number"))
}

func (c Contract) Status() internal.ContractStatus {
	return internal.ContractStatus(strings.ToLower(c.Text("status")))
}

func (c Contract) ClientName() string {
	return c.Text("client_name")
}

func (c Contract) PartnerName() string {
	return util.FirstNonEmpty(c.Text("partner_name"), c.Text("responsavel_socio"))
}

func (c Contract) StatusDates() []string {
	return []string{
		c.Text("prospect_date"),
		c.Text("proposal_date"),
		c.Text("contract_date"),
		c.Text("rejection_date"),
		c.Text("probono_date"),
	}
}

func (c Contract) PhysicalSignature() bool {
	switch v := c.fields["physical_signature"].(type) {
	case bool:
		return v
	case nil:
		return false
	}
	switch strings.ToLower(c.Text("physical_signature")) {
	case "true", "1", "sim", "yes", "s":
		return true
	}
	return false
}

// ListField classifies a fee-extras column. Blank cells from spreadsheet and
// table imports count as absent, not as drift.
func (c Contract) ListField(key string) money.Extras {
	v := c.fields[key]
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		v = nil
	}
	return money.ClassifyExtras(v)
}
