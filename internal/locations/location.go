// Package locations maps one CSV row onto a Location record.
package locations

import (
	"strings"
)

const HeaderLocationName = "Location Name"

// Row is one CSV record keyed by header.
type Row map[string]string

type Field string

const (
	FieldAddress1 Field = "address1"
	FieldAddress2 Field = "address2"
	FieldCity     Field = "city"
	FieldState    Field = "state"
	FieldZip      Field = "zip"
	FieldCountry  Field = "country"
	FieldEmail    Field = "email"
	FieldPhone    Field = "phone"
	FieldFax      Field = "fax"
	FieldMotto    Field = "motto"
	FieldSubtitle Field = "subtitle"
	FieldTitle    Field = "title"
)

type FieldMapping struct {
	Header string
	Field  Field
}

// FieldTable is iterated in order when building display lists.
var FieldTable = []FieldMapping{
	{Header: "Address 1", Field: FieldAddress1},
	{Header: "Address 2", Field: FieldAddress2},
	{Header: "City/Town", Field: FieldCity},
	{Header: "Country", Field: FieldCountry},
	{Header: "Email", Field: FieldEmail},
	{Header: "Fax Number", Field: FieldFax},
	{Header: "Motto", Field: FieldMotto},
	{Header: "Phone Number", Field: FieldPhone},
	{Header: "State/Province", Field: FieldState},
	{Header: "Subtitle", Field: FieldSubtitle},
	{Header: "Title", Field: FieldTitle},
	{Header: "Postal Code", Field: FieldZip},
}

type PhoneNumber struct {
	Number string `json:"number"`
}

type DisplayListItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Location struct {
	Name     string
	Address1 string
	Address2 string
	City     string
	State    string
	Zip      string
	Country  string
	Email    string
	Phone    *PhoneNumber
	Fax      *PhoneNumber
	Motto    string
	Subtitle string
	Title    string

	// Extra holds non-empty cells of columns the table does not map, keyed by header.
	Extra map[string]string
}

// Normalize builds a Location from row. The name item always leads the display list;
// the remaining items follow FieldTable order and only cover fields that were set.
func Normalize(row Row) (Location, []DisplayListItem) {
	loc := Location{Name: row[HeaderLocationName]}
	display := []DisplayListItem{{Key: HeaderLocationName, Value: loc.Name}}

	for _, m := range FieldTable {
		value, ok := row[m.Header]
		if !ok || isBlank(value) {
			continue
		}
		loc.set(m.Field, value)
		display = append(display, DisplayListItem{Key: m.Header, Value: value})
	}

	for header, value := range row {
		if isBlank(value) || !IsPassthroughHeader(header) {
			continue
		}
		if loc.Extra == nil {
			loc.Extra = make(map[string]string)
		}
		loc.Extra[header] = value
	}

	return loc, display
}

// IsPassthroughHeader reports whether header is carried through untouched.
// The name column, table columns and image columns are handled elsewhere, and headers
// that collide with a body key are dropped.
func IsPassthroughHeader(header string) bool {
	if header == HeaderLocationName || isBodyKey(header) {
		return false
	}
	if _, ok := headerField(header); ok {
		return false
	}
	for _, image := range imageHeaders {
		if header == image {
			return false
		}
	}
	return strings.TrimSpace(header) != ""
}

var imageHeaders = []string{
	"Primary Logo", "Primary Logo Alt-Text",
	"Primary Thumbnail", "Primary Thumbnail Alt-Text",
	"Secondary Logo", "Secondary Logo Alt-Text",
	"Secondary Thumbnail", "Secondary Thumbnail Alt-Text",
}

func isBodyKey(header string) bool {
	key := strings.TrimSpace(header)
	if strings.EqualFold(key, "name") {
		return true
	}
	for _, m := range FieldTable {
		if strings.EqualFold(key, string(m.Field)) {
			return true
		}
	}
	return false
}

func headerField(header string) (Field, bool) {
	for _, m := range FieldTable {
		if m.Header == header {
			return m.Field, true
		}
	}
	return "", false
}

func (l *Location) set(field Field, value string) {
	switch field {
	case FieldAddress1:
		l.Address1 = value
	case FieldAddress2:
		l.Address2 = value
	case FieldCity:
		l.City = value
	case FieldState:
		l.State = value
	case FieldZip:
		l.Zip = value
	case FieldCountry:
		l.Country = value
	case FieldEmail:
		l.Email = value
	case FieldPhone:
		l.Phone = &PhoneNumber{Number: value}
	case FieldFax:
		l.Fax = &PhoneNumber{Number: value}
	case FieldMotto:
		l.Motto = value
	case FieldSubtitle:
		l.Subtitle = value
	case FieldTitle:
		l.Title = value
	}
}

// Get returns the value of field and whether it was set.
func (l Location) Get(field Field) (string, bool) {
	var value string
	switch field {
	case FieldAddress1:
		value = l.Address1
	case FieldAddress2:
		value = l.Address2
	case FieldCity:
		value = l.City
	case FieldState:
		value = l.State
	case FieldZip:
		value = l.Zip
	case FieldCountry:
		value = l.Country
	case FieldEmail:
		value = l.Email
	case FieldPhone:
		if l.Phone == nil {
			return "", false
		}
		return l.Phone.Number, true
	case FieldFax:
		if l.Fax == nil {
			return "", false
		}
		return l.Fax.Number, true
	case FieldMotto:
		value = l.Motto
	case FieldSubtitle:
		value = l.Subtitle
	case FieldTitle:
		value = l.Title
	}
	return value, value != ""
}

// Body is the payload sent to the backend for the location setup subtask.
func (l Location) Body() map[string]any {
	body := make(map[string]any, len(l.Extra)+1)
	for header, value := range l.Extra {
		body[header] = value
	}
	body["name"] = l.Name
	for _, m := range FieldTable {
		value, ok := l.Get(m.Field)
		if !ok {
			continue
		}
		switch m.Field {
		case FieldPhone, FieldFax:
			body[string(m.Field)] = map[string]string{"number": value}
		default:
			body[string(m.Field)] = value
		}
	}
	return body
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
