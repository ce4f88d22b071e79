package crm

import (
	"context"

	"github.com/ajitpratap0/nebula-crm/pkg/connector/core"
	"github.com/ajitpratap0/nebula-crm/pkg/errors"
	nebulastrings "github.com/ajitpratap0/nebula-crm/pkg/strings"
)

// IdentityResolver finds the remote id of the record a write targets.
// found=false means the record should be created. A non-nil error is
// fatal for the record.
type IdentityResolver interface {
	Resolve(ctx context.Context, rec *Normalized) (id string, found bool, err error)
}

// Session is the remote endpoint a writer talks to. Headers are set by
// Writer.Open and shared with the identity resolver.
type Session struct {
	Transport core.Transport
	BaseURL   string
	Entity    string
	Headers   map[string]string
}

// ObjectsURL returns {base}/objects/{entity}[/segments...].
func (s *Session) ObjectsURL(segments ...string) *nebulastrings.URLBuilder {
	return nebulastrings.NewURLBuilder(s.BaseURL).AddPath("objects", s.Entity).AddPath(segments...)
}

// SearchIdentity looks records up by a unique property with one search
// call.
type SearchIdentity struct {
	session  *Session
	property string
}

// NewSearchIdentity creates a search resolver keyed by property.
func NewSearchIdentity(session *Session, property string) *SearchIdentity {
	return &SearchIdentity{session: session, property: property}
}

// Property returns the unique property searched on.
func (s *SearchIdentity) Property() string { return s.property }

// Resolve searches for a record whose unique property equals the record's
// value. No call is made when the record has no such value.
func (s *SearchIdentity) Resolve(ctx context.Context, rec *Normalized) (string, bool, error) {
	value := rec.Properties[s.property]
	if value == "" {
		return "", false, nil
	}

	body := map[string]interface{}{
		"filterGroups": []interface{}{
			map[string]interface{}{
				"filters": []interface{}{
					map[string]interface{}{
						"propertyName": s.property,
						"operator":     "EQ",
						"value":        value,
					},
				},
			},
		},
		"limit": 1,
	}

	url := s.session.ObjectsURL("search").String()
	resp, err := s.session.Transport.Post(ctx, url, body, s.session.Headers)
	if err != nil {
		return "", false, errors.NewRemoteWrite(s.session.Entity, "search", err).WithDetail("url", url)
	}

	doc, _ := resp.(map[string]interface{})
	results, _ := doc["results"].([]interface{})
	for _, r := range results {
		item, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		if id := nebulastrings.ValueToString(item["id"]); id != "" {
			return id, true, nil
		}
	}
	return "", false, nil
}

// DirectIDIdentity takes the id from the record and confirms it exists with
// one retrieve call.
type DirectIDIdentity struct {
	session    *Session
	idField    string
	idProperty string
}

// NewDirectIDIdentity creates a direct-id resolver. idField names an extra
// field holding the id; idProperty keys the retrieve call by a custom
// unique property instead of the record id.
func NewDirectIDIdentity(session *Session, idField, idProperty string) *DirectIDIdentity {
	return &DirectIDIdentity{session: session, idField: idField, idProperty: idProperty}
}

// IDProperty returns the custom property ids are keyed by, if any.
func (d *DirectIDIdentity) IDProperty() string { return d.idProperty }

// Resolve returns the record's own id when the remote has it. A 404 means
// not found; any other failure is returned.
func (d *DirectIDIdentity) Resolve(ctx context.Context, rec *Normalized) (string, bool, error) {
	id := d.recordID(rec.Document)
	if id == "" {
		return "", false, nil
	}

	url := d.session.ObjectsURL(id).AddParamIf("idProperty", d.idProperty).String()
	if _, err := d.session.Transport.Get(ctx, url, d.session.Headers); err != nil {
		if errors.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, errors.NewRemoteWrite(d.session.Entity, "retrieve", err).WithDetail("url", url)
	}
	return id, true, nil
}

// recordID reads id, recordId, the configured field, then the configured
// field inside properties. The first non-empty value wins.
func (d *DirectIDIdentity) recordID(doc map[string]interface{}) string {
	candidates := []interface{}{doc["id"], doc["recordId"]}
	if d.idField != "" {
		candidates = append(candidates, doc[d.idField])
		if props, ok := doc["properties"].(map[string]interface{}); ok {
			candidates = append(candidates, props[d.idField])
		}
	}
	for _, c := range candidates {
		if s, ok := stringify(c); ok {
			return s
		}
	}
	return ""
}
