package openproject

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

const unknownName = "Unknown"

// Link is a HAL link. A nil Href marshals as an explicit null, which is
// how the API models removing a relationship.
type Link struct {
	Href  *string `json:"href"`
	Title string  `json:"title,omitempty"`
}

// Ref is a normalized relationship.
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// LinkTo builds a link with the given href.
func LinkTo(href string) Link {
	return Link{Href: &href}
}

// NullLink is a link whose href is JSON null.
func NullLink() Link {
	return Link{}
}

// ParseLinkID extracts the numeric id from the trailing path segment of
// href.
func ParseLinkID(href string) (int, bool) {
	trimmed := strings.TrimRight(href, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	id, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Ref converts the link into a Ref. It returns nil when the link is unset
// or its href does not end in a numeric id. A missing title becomes
// "Unknown".
func (l Link) Ref() *Ref {
	if l.Href == nil || *l.Href == "" {
		return nil
	}
	id, ok := ParseLinkID(*l.Href)
	if !ok {
		return nil
	}
	name := l.Title
	if name == "" {
		name = unknownName
	}
	return &Ref{ID: id, Name: name}
}

// NormalizeLink is the Ref of link, or nil when link is nil.
func NormalizeLink(link *Link) *Ref {
	if link == nil {
		return nil
	}
	return link.Ref()
}

// flatRef is a relationship that some endpoints embed directly on the
// resource rather than under _links.
type flatRef struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
}

// resolveRef prefers a flattened object and falls back to the link.
func resolveRef(flat *flatRef, link *Link) *Ref {
	if flat != nil && flat.ID != 0 {
		name := flat.Name
		if name == "" {
			name = flat.Subject
		}
		if name == "" {
			name = unknownName
		}
		return &Ref{ID: flat.ID, Name: name}
	}
	return NormalizeLink(link)
}

func resolveRefs(links []Link) []Ref {
	refs := make([]Ref, 0, len(links))
	for _, link := range links {
		if ref := link.Ref(); ref != nil {
			refs = append(refs, *ref)
		}
	}
	return refs
}

var resourceTemplate = mustTemplate("{+base}/api/v3/{+collection}/{id}")

func mustTemplate(raw string) *uritemplate.Template {
	tmpl, err := uritemplate.New(raw)
	if err != nil {
		panic(fmt.Sprintf("openproject: invalid uri template %q: %v", raw, err))
	}
	return tmpl
}

// resourceHref builds the absolute href of a resource, for example
// {base}/api/v3/statuses/7.
func resourceHref(base, collection string, id int) string {
	values := uritemplate.Values{}
	values.Set("base", uritemplate.String(base))
	values.Set("collection", uritemplate.String(collection))
	values.Set("id", uritemplate.String(strconv.Itoa(id)))
	href, err := resourceTemplate.Expand(values)
	if err != nil {
		return fmt.Sprintf("%s/api/v3/%s/%d", base, collection, id)
	}
	return href
}
