package domain

type Customer struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
	City string `json:"city" yaml:"city"`
}

type Recipient struct {
	Key        string `json:"key" yaml:"key"`
	Name       string `json:"name" yaml:"name"`
	NationalID string `json:"nationalId" yaml:"national_id"`
}

type BankAccount struct {
	CardNumber    string `yaml:"card_number"`
	Sheba         string `yaml:"sheba"`
	AccountHolder string `yaml:"account_holder"`
}

// ReferenceData is loaded once at startup and never mutated afterwards.
type ReferenceData struct {
	Recipients     []Recipient `yaml:"recipients"`
	Customers      []Customer  `yaml:"customers"`
	Catalog        []Product   `yaml:"catalog"`
	Bank           BankAccount `yaml:"bank"`
	SupportContact string      `yaml:"support_contact"`
}

func (r *ReferenceData) Recipient(key string) (Recipient, bool) {
	for _, rc := range r.Recipients {
		if rc.Key == key {
			return rc, true
		}
	}
	return Recipient{}, false
}

func DefaultRecipients() []Recipient {
	return []Recipient{
		{Key: "farank", Name: "خانم فرانک غریبی", NationalID: "0012311138"},
		{Key: "nima", Name: "نیما کریمی", NationalID: "0451640594"},
		{Key: "majid", Name: "مجید ترابیان", NationalID: "007335310"},
		{Key: "vahid", Name: "آقای وحید ترابیان", NationalID: "0077860357"},
	}
}
