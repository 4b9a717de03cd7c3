package letters

// LetterType is one selectable letter template.
type LetterType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Category groups letter types for display.
type Category struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Types []LetterType `json:"types"`
}

var categories = []Category{
	{
		ID:   "business",
		Name: "Business & Corporate",
		Types: []LetterType{
			{ID: "cease_desist", Name: "Cease and Desist Letter"},
			{ID: "contract_breach", Name: "Contract Breach Notice"},
			{ID: "employment_issue", Name: "Employment Issue Letter"},
			{ID: "intellectual_property", Name: "Intellectual Property Notice"},
		},
	},
	{
		ID:   "consumer",
		Name: "Consumer & Personal",
		Types: []LetterType{
			{ID: "debt_collection", Name: "Debt Collection Dispute"},
			{ID: "insurance_claim", Name: "Insurance Claim Letter"},
			{ID: "landlord_tenant", Name: "Landlord/Tenant Issue"},
			{ID: "product_liability", Name: "Product Liability Claim"},
		},
	},
	{
		ID:   "legal",
		Name: "Legal & Compliance",
		Types: []LetterType{
			{ID: "regulatory_compliance", Name: "Regulatory Compliance Notice"},
			{ID: "legal_demand", Name: "Legal Demand Letter"},
			{ID: "settlement_proposal", Name: "Settlement Proposal"},
			{ID: "mediation_request", Name: "Mediation Request"},
		},
	},
}

// Categories returns a copy of the catalogue.
func Categories() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		types := make([]LetterType, len(c.Types))
		copy(types, c.Types)
		c.Types = types
		out[i] = c
	}
	return out
}

func LookupLetterType(id string) (LetterType, bool) {
	for _, c := range categories {
		for _, t := range c.Types {
			if t.ID == id {
				return t, true
			}
		}
	}
	return LetterType{}, false
}
