package cw2015

import "errors"

// ErrUnknownQuery is returned when a query name is not in Queries.
var ErrUnknownQuery = errors.New("unknown query")

// Query describes one read-only value exposed by a Device.
type Query struct {
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	Description string `json:"description"`

	read func(d *Device) (int, error)
}

// Read performs the query against d.
func (q *Query) Read(d *Device) (int, error) {
	return q.read(d)
}

// Queries is the fixed table of values exposed to consumers.
var Queries = []*Query{
	{
		Name:        "millivolt",
		Unit:        "mV",
		Description: "battery voltage in millivolt",
		read:        (*Device).Millivolts,
	},
	{
		Name:        "chargepct",
		Unit:        "%",
		Description: "remaining charge in percent",
		read:        (*Device).ChargePercent,
	},
	{
		Name:        "remaining",
		Unit:        "min",
		Description: "remaining run time in minutes",
		read:        (*Device).RemainingMinutes,
	},
	{
		Name:        "charging",
		Unit:        "bool",
		Description: "charging status",
		read: func(d *Device) (int, error) {
			charging, err := d.Charging()
			if err != nil {
				return 0, err
			}
			if charging {
				return 1, nil
			}
			return 0, nil
		},
	},
}

var queriesByName = func() map[string]*Query {
	m := make(map[string]*Query, len(Queries))
	for _, q := range Queries {
		m[q.Name] = q
	}
	return m
}()

// LookupQuery returns the query called name.
func LookupQuery(name string) (*Query, bool) {
	q, ok := queriesByName[name]
	return q, ok
}

// Query runs the query called name.
func (d *Device) Query(name string) (int, error) {
	q, ok := LookupQuery(name)
	if !ok {
		return 0, ErrUnknownQuery
	}
	return q.Read(d)
}
