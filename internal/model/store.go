package model

// Column names shared by per-source and merged tables.
const (
	ColChain        = "chain"
	ColName         = "name"
	ColAddress      = "address"
	ColCity         = "city"
	ColPhone        = "phone"
	ColHours        = "hours"
	ColLatitude     = "latitude"
	ColLongitude    = "longitude"
	ColSourceFormat = "source_format"
)

// CoreColumns is the fixed leading column order of the merged table.
func CoreColumns() []string {
	return []string{
		ColChain, ColName, ColAddress, ColCity, ColPhone, ColHours,
		ColLatitude, ColLongitude, ColSourceFormat,
	}
}

// RawCoordinate holds whatever coordinate evidence a page exposed for one store.
// Extractors fill the fields they have; the normalizer decides which to use.
type RawCoordinate struct {
	Lat  string // separate latitude field
	Lon  string // separate longitude field
	Text string // "lat,lon" pair or DMS string
	Link string // map link or shortened link
}

// IsZero reports whether no coordinate evidence was captured.
func (c RawCoordinate) IsZero() bool {
	return c.Lat == "" && c.Lon == "" && c.Text == "" && c.Link == ""
}

// RawRecord is one listing as read from a source site, before normalization.
type RawRecord struct {
	Chain      Chain
	Seq        int // position in extraction order
	Name       Field
	Address    Field
	Phone      Field
	Hours      Field
	Coordinate RawCoordinate
	Extra      map[string]Field
}

// StoreRecord is one physical store with validated coordinates.
type StoreRecord struct {
	Chain        Chain            `json:"chain"`
	Seq          int              `json:"seq"`
	Name         Field            `json:"-"`
	Address      Field            `json:"-"`
	City         string           `json:"city"`
	Latitude     float64          `json:"latitude"`
	Longitude    float64          `json:"longitude"`
	Phone        Field            `json:"-"`
	Hours        Field            `json:"-"`
	SourceFormat SourceFormat     `json:"source_format"`
	Extra        map[string]Field `json:"-"`
}

// FieldByColumn returns the optional field stored under the given column name.
// Columns that are not optional text fields report as not collected.
func (r StoreRecord) FieldByColumn(col string) Field {
	switch col {
	case ColName:
		return r.Name
	case ColAddress:
		return r.Address
	case ColPhone:
		return r.Phone
	case ColHours:
		return r.Hours
	}
	if f, ok := r.Extra[col]; ok {
		return f
	}
	return NotCollected()
}
