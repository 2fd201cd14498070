package backend

import (
	"encoding/json"
	"net/url"
)

// TicketFields is the projection requested for every ticket list, whatever
// the view, so downstream aggregation treats all views alike.
var TicketFields = []string{
	"name", "raised_by", "assigned_to_user", "who_can_solve_this", "what_is_issueidea",
	"when_do_i_need_this_by", "severity_business_impact", "business_impact",
	"creation", "status", "notes", "status_update_latest_time", "action_status",
	"reporting_manager_user", "link", "attachment",
}

// RatingFields is the projection used for rating aggregation.
var RatingFields = []string{"name", "action_status"}

// Filter is one backend list filter, encoded as [field, op, value].
type Filter struct {
	Field string
	Op    string
	Value string
}

// Eq builds an equality filter.
func Eq(field, value string) Filter {
	return Filter{Field: field, Op: "=", Value: value}
}

// Ne builds an inequality filter.
func Ne(field, value string) Filter {
	return Filter{Field: field, Op: "!=", Value: value}
}

// MarshalJSON encodes the filter in the backend's triple form.
func (f Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{f.Field, f.Op, f.Value})
}

// listQuery renders fields and filters as resource list query parameters.
func listQuery(fields []string, filters []Filter) (string, error) {
	values := url.Values{}
	if len(fields) > 0 {
		encoded, err := json.Marshal(fields)
		if err != nil {
			return "", err
		}
		values.Set("fields", string(encoded))
	}
	if filters == nil {
		filters = []Filter{}
	}
	encoded, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	values.Set("filters", string(encoded))
	values.Set("limit_page_length", "0")
	return values.Encode(), nil
}
