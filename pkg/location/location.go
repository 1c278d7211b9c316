package location

import (
	"context"
	"fmt"
	"strings"

	"bee-finder/pkg/apperr"
)

// Kind distinguishes the two ways a user can describe a location.
type Kind string

const (
	KindZipcode   Kind = "zipcode"
	KindCityState Kind = "cityState"
)

const (
	msgInvalidZipcode   = "Invalid zipcode. Please try another."
	msgInvalidCityState = "Invalid City/State combination. Please check your spelling and try again."
	msgFetchFailed      = "Could not fetch location data."
	msgMissingCoords    = "Could not find location data for the provided input."
	msgBadRequest       = "The request must include a 'zipcode' string, or 'city' and 'state' strings."
)

// Query is a submitted location. Exactly one of Value or City/State is meaningful, depending on Kind.
type Query struct {
	Kind  Kind
	Value string
	City  string
	State string
}

func ZipcodeQuery(zip string) Query {
	return Query{Kind: KindZipcode, Value: strings.TrimSpace(zip)}
}

func CityStateQuery(city, state string) Query {
	return Query{
		Kind:  KindCityState,
		City:  strings.TrimSpace(city),
		State: strings.ToUpper(strings.TrimSpace(state)),
	}
}

// ParseRequest builds a query from loosely-typed request fields. A zipcode wins when both forms are present.
func ParseRequest(zipcode, city, state string) (Query, error) {
	var q Query
	switch {
	case strings.TrimSpace(zipcode) != "":
		q = ZipcodeQuery(zipcode)
	case strings.TrimSpace(city) != "" && strings.TrimSpace(state) != "":
		q = CityStateQuery(city, state)
	default:
		return Query{}, apperr.New(apperr.InvalidArgument, msgBadRequest)
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Validate checks the query shape before anything is sent over the network.
func (q Query) Validate() error {
	switch q.Kind {
	case KindZipcode:
		if len(q.Value) != 5 || !allDigits(q.Value) {
			return apperr.New(apperr.InvalidArgument, "Please enter a valid 5-digit zipcode.")
		}
	case KindCityState:
		if q.City == "" {
			return apperr.New(apperr.InvalidArgument, "Please enter a city.")
		}
		if len(q.State) != 2 || !allLetters(q.State) {
			return apperr.New(apperr.InvalidArgument, "Please enter a two-letter state code.")
		}
	default:
		return apperr.New(apperr.InvalidArgument, msgBadRequest)
	}
	return nil
}

// String renders the query the way a user typed it.
func (q Query) String() string {
	if q.Kind == KindZipcode {
		return q.Value
	}
	return fmt.Sprintf("%s, %s", q.City, q.State)
}

// CacheKey is stable across equivalent spellings of the same query.
func (q Query) CacheKey() string {
	if q.Kind == KindZipcode {
		return "zip:" + q.Value
	}
	return "city:" + strings.ToUpper(q.State) + ":" + strings.ToLower(q.City)
}

func (q Query) notFound() error {
	if q.Kind == KindZipcode {
		return apperr.New(apperr.NotFound, msgInvalidZipcode)
	}
	return apperr.New(apperr.NotFound, msgInvalidCityState)
}

// Resolved is the canonical location record every provider normalises to.
type Resolved struct {
	DisplayName       string `json:"displayName"`
	StateAbbreviation string `json:"stateAbbreviation"`
	Latitude          string `json:"latitude"`
	Longitude         string `json:"longitude"`
}

// Resolver turns a query into a fully resolved location.
type Resolver interface {
	Resolve(ctx context.Context, q Query) (Resolved, error)
}

func newResolved(placeName, stateAbbr, lat, lng string) Resolved {
	return Resolved{
		DisplayName:       fmt.Sprintf("%s, %s", placeName, stateAbbr),
		StateAbbreviation: stateAbbr,
		Latitude:          lat,
		Longitude:         lng,
	}
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func allLetters(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
