package pagestore

import (
	"fmt"
	"math/rand"
	"strings"
)

// Persona is a generated fake identity for form autofill.
type Persona struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Street    string `json:"street"`
	City      string `json:"city"`
	ZipCode   string `json:"zipCode"`
	Company   string `json:"company"`
}

var (
	firstNames = []string{"Avery", "Blake", "Casey", "Dana", "Emerson", "Finley", "Harper", "Jordan", "Kendall", "Logan", "Morgan", "Parker", "Quinn", "Riley", "Sawyer", "Taylor"}
	lastNames  = []string{"Adler", "Barnes", "Calloway", "Duran", "Ellis", "Foster", "Grady", "Holt", "Ingram", "Jensen", "Keller", "Lowell", "Mercer", "Nolan", "Oakes", "Pruitt"}
	streets    = []string{"Maple Ave", "Cedar St", "Oak Ridge Rd", "Birch Lane", "Juniper Way", "Willow Ct", "Elm Dr", "Aspen Blvd"}
	cities     = []string{"Austin", "Boulder", "Columbus", "Denton", "Eugene", "Fresno", "Greenville", "Henderson"}
	companies  = []string{"Brightway Labs", "Cobalt Systems", "Driftwood Digital", "Evergreen Works", "Fathom Tools", "Granite Forge"}
	mailHosts  = []string{"example.com", "mailinator.test", "inbox.dev"}
)

// NewPersona generates a deterministic identity from seed; the same seed
// always yields the same persona.
func NewPersona(seed int64) Persona {
	r := rand.New(rand.NewSource(seed))
	first := firstNames[r.Intn(len(firstNames))]
	last := lastNames[r.Intn(len(lastNames))]
	return Persona{
		FirstName: first,
		LastName:  last,
		Email: fmt.Sprintf("%s.%s%d@%s",
			strings.ToLower(first), strings.ToLower(last), r.Intn(1000), mailHosts[r.Intn(len(mailHosts))]),
		Phone:   fmt.Sprintf("555-%03d-%04d", r.Intn(1000), r.Intn(10000)),
		Street:  fmt.Sprintf("%d %s", 1+r.Intn(9999), streets[r.Intn(len(streets))]),
		City:    cities[r.Intn(len(cities))],
		ZipCode: fmt.Sprintf("%05d", 10000+r.Intn(89999)),
		Company: companies[r.Intn(len(companies))],
	}
}

// Dataset converts the persona into an autofill dataset keyed by common
// form field names.
func (p Persona) Dataset(name string) Dataset {
	if name == "" {
		name = p.FirstName + " " + p.LastName
	}
	return Dataset{
		Name: name,
		Fields: map[string]string{
			"firstName": p.FirstName,
			"lastName":  p.LastName,
			"name":      p.FirstName + " " + p.LastName,
			"email":     p.Email,
			"phone":     p.Phone,
			"street":    p.Street,
			"city":      p.City,
			"zip":       p.ZipCode,
			"company":   p.Company,
		},
	}
}
