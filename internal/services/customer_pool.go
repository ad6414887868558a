package services

import (
	"errors"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/hanko-field/ordersim/internal/domain"
)

// customerNamespace scopes deterministic customer identifiers derived from email addresses.
var customerNamespace = uuid.MustParse("6f1c2a4e-1d0b-4d3e-9a57-3c2f8e5b7a10")

type contact struct {
	name  string
	email string
	phone string
}

var defaultContacts = []contact{
	{"Emma Johnson", "emma.johnson@example.com", "+1234567890"},
	{"Liam Smith", "liam.smith@example.com", "+1234567891"},
	{"Olivia Williams", "olivia.williams@example.com", "+1234567892"},
	{"Noah Brown", "noah.brown@example.com", "+1234567893"},
	{"Ava Jones", "ava.jones@example.com", "+1234567894"},
	{"Isabella Garcia", "isabella.garcia@example.com", "+1234567895"},
	{"Sophia Miller", "sophia.miller@example.com", "+1234567896"},
	{"Jackson Davis", "jackson.davis@example.com", "+1234567897"},
	{"Mia Rodriguez", "mia.rodriguez@example.com", "+1234567898"},
	{"Lucas Wilson", "lucas.wilson@example.com", "+1234567899"},
	{"Charlotte Martinez", "charlotte.martinez@example.com", "+1234567800"},
	{"Ethan Anderson", "ethan.anderson@example.com", "+1234567801"},
	{"Amelia Taylor", "amelia.taylor@example.com", "+1234567802"},
	{"Alexander Thomas", "alexander.thomas@example.com", "+1234567803"},
	{"Harper Jackson", "harper.jackson@example.com", "+1234567804"},
}

var defaultAddresses = map[string][]domain.Address{
	"US": {
		{Street: "123 Maple Street", City: "Springfield", Zip: "12345", Province: "NY", Country: "US"},
		{Street: "456 Oak Avenue", City: "Madison", Zip: "53706", Province: "WI", Country: "US"},
		{Street: "789 Pine Road", City: "Austin", Zip: "73301", Province: "TX", Country: "US"},
		{Street: "321 Elm Street", City: "Portland", Zip: "97201", Province: "OR", Country: "US"},
		{Street: "654 Cedar Lane", City: "Denver", Zip: "80202", Province: "CO", Country: "US"},
		{Street: "987 Birch Drive", City: "Seattle", Zip: "98101", Province: "WA", Country: "US"},
		{Street: "147 Willow Way", City: "Phoenix", Zip: "85001", Province: "AZ", Country: "US"},
		{Street: "258 Spruce Court", City: "Miami", Zip: "33101", Province: "FL", Country: "US"},
		{Street: "369 Aspen Place", City: "Boston", Zip: "02101", Province: "MA", Country: "US"},
		{Street: "741 Poplar Boulevard", City: "Chicago", Zip: "60601", Province: "IL", Country: "US"},
	},
	"CA": {
		{Street: "100 King Street", City: "Toronto", Zip: "M5H 1A1", Province: "ON", Country: "CA"},
		{Street: "200 Robson Street", City: "Vancouver", Zip: "V6B 2A7", Province: "BC", Country: "CA"},
		{Street: "300 8th Avenue SW", City: "Calgary", Zip: "T2P 1C5", Province: "AB", Country: "CA"},
		{Street: "400 Portage Avenue", City: "Winnipeg", Zip: "R3C 0C8", Province: "MB", Country: "CA"},
		{Street: "500 University Avenue", City: "Toronto", Zip: "M5G 1V7", Province: "ON", Country: "CA"},
		{Street: "600 René-Lévesque Blvd", City: "Montreal", Zip: "H3B 1H7", Province: "QC", Country: "CA"},
		{Street: "700 Water Street", City: "St. John's", Zip: "A1E 1B6", Province: "NL", Country: "CA"},
		{Street: "800 Jasper Avenue", City: "Edmonton", Zip: "T5J 3N4", Province: "AB", Country: "CA"},
		{Street: "900 Georgia Street", City: "Vancouver", Zip: "V6C 2W6", Province: "BC", Country: "CA"},
		{Street: "1000 Yonge Street", City: "Toronto", Zip: "M4W 2K2", Province: "ON", Country: "CA"},
	},
	"GB": {
		{Street: "10 Downing Street", City: "London", Zip: "SW1A 2AA", Province: "England", Country: "GB"},
		{Street: "15 Baker Street", City: "London", Zip: "NW1 6XE", Province: "England", Country: "GB"},
		{Street: "20 Princess Street", City: "Manchester", Zip: "M1 4LY", Province: "England", Country: "GB"},
		{Street: "25 Rose Street", City: "Edinburgh", Zip: "EH2 2PR", Province: "Scotland", Country: "GB"},
		{Street: "30 Castle Street", City: "Cardiff", Zip: "CF10 1BH", Province: "Wales", Country: "GB"},
		{Street: "35 High Street", City: "Birmingham", Zip: "B4 7SL", Province: "England", Country: "GB"},
		{Street: "40 Church Street", City: "Liverpool", Zip: "L1 3AX", Province: "England", Country: "GB"},
		{Street: "45 Queen Street", City: "Glasgow", Zip: "G1 3DX", Province: "Scotland", Country: "GB"},
		{Street: "50 Market Street", City: "Leeds", Zip: "LS1 6DT", Province: "England", Country: "GB"},
		{Street: "55 King Street", City: "Bristol", Zip: "BS1 4ER", Province: "England", Country: "GB"},
	},
	"AU": {
		{Street: "123 Collins Street", City: "Melbourne", Zip: "3000", Province: "VIC", Country: "AU"},
		{Street: "456 George Street", City: "Sydney", Zip: "2000", Province: "NSW", Country: "AU"},
		{Street: "789 Queen Street", City: "Brisbane", Zip: "4000", Province: "QLD", Country: "AU"},
		{Street: "321 King William Street", City: "Adelaide", Zip: "5000", Province: "SA", Country: "AU"},
		{Street: "654 Hay Street", City: "Perth", Zip: "6000", Province: "WA", Country: "AU"},
		{Street: "987 Elizabeth Street", City: "Hobart", Zip: "7000", Province: "TAS", Country: "AU"},
		{Street: "147 Smith Street", City: "Darwin", Zip: "0800", Province: "NT", Country: "AU"},
		{Street: "258 Northbourne Avenue", City: "Canberra", Zip: "2600", Province: "ACT", Country: "AU"},
		{Street: "369 Flinders Street", City: "Melbourne", Zip: "3000", Province: "VIC", Country: "AU"},
		{Street: "741 Pitt Street", City: "Sydney", Zip: "2000", Province: "NSW", Country: "AU"},
	},
}

// defaultCountries fixes the country draw order so runs are reproducible.
var defaultCountries = []string{"US", "CA", "GB", "AU"}

// CustomerPool synthesises order customers. Contact presence and address are drawn independently.
type CustomerPool struct {
	contacts  []contact
	countries []string
	addresses map[string][]domain.Address
}

// NewDefaultCustomerPool returns the built-in pool of 15 contacts and 40 addresses in four countries.
func NewDefaultCustomerPool() *CustomerPool {
	return &CustomerPool{
		contacts:  defaultContacts,
		countries: defaultCountries,
		addresses: defaultAddresses,
	}
}

// NewCustomerPool restricts the default pool to the given countries.
func NewCustomerPool(countries []string) (*CustomerPool, error) {
	if len(countries) == 0 {
		return NewDefaultCustomerPool(), nil
	}
	selected := make([]string, 0, len(countries))
	for _, c := range countries {
		if _, ok := defaultAddresses[c]; !ok {
			return nil, errors.New("customer pool: unsupported country " + c)
		}
		selected = append(selected, c)
	}
	sort.Strings(selected)
	return &CustomerPool{contacts: defaultContacts, countries: selected, addresses: defaultAddresses}, nil
}

// Countries lists the countries addresses are drawn from.
func (p *CustomerPool) Countries() []string {
	return append([]string(nil), p.countries...)
}

// Draw returns a customer; half of them carry contact details. An address is always attached.
func (p *CustomerPool) Draw(rng *rand.Rand) domain.Customer {
	var customer domain.Customer
	if rng.Intn(2) == 0 {
		c := p.contacts[rng.Intn(len(p.contacts))]
		customer = domain.Customer{
			ID:    uuid.NewSHA1(customerNamespace, []byte(c.email)).String(),
			Name:  c.name,
			Email: c.email,
			Phone: c.phone,
		}
	}
	country := p.countries[rng.Intn(len(p.countries))]
	pool := p.addresses[country]
	customer.Address = pool[rng.Intn(len(pool))]
	return customer
}

// PaymentReference derives a payment reference from the run's random source so runs stay reproducible.
func PaymentReference(rng *rand.Rand) string {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return ""
	}
	return id.String()
}
