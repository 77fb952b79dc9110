package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterAccept(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		url    string
		want   Rejection
	}{
		{"plain page", NewFilter("", nil, nil), "https://a.com/page", Accepted},
		{"html page", NewFilter("", nil, nil), "https://a.com/index.html", Accepted},
		{"png", NewFilter("", nil, nil), "https://a.com/logo.png", RejectExtension},
		{"svg", NewFilter("", nil, nil), "https://a.com/icon.svg", RejectExtension},
		{"uppercase extension", NewFilter("", nil, nil), "https://a.com/PHOTO.JPG", RejectExtension},
		{"extension before query", NewFilter("", nil, nil), "https://a.com/site.css?v=3", RejectExtension},
		{"ftp", NewFilter("", nil, nil), "ftp://a.com/file", RejectScheme},
		{"mailto", NewFilter("", nil, nil), "mailto:me@a.com", RejectScheme},
		{"fragment", NewFilter("", nil, nil), "https://a.com/page#section", RejectFragment},
		{"bare fragment", NewFilter("", nil, nil), "https://a.com/#", RejectFragment},
		{"match required", NewFilter("a.com", nil, nil), "https://b.com/x", RejectNoMatch},
		{"match satisfied", NewFilter("a.com", nil, nil), "https://a.com/x", Accepted},
		{"ignored", NewFilter("", []string{"/admin"}, nil), "https://a.com/admin/x", RejectIgnored},
		{"second ignore", NewFilter("", []string{"/login", "/admin"}, nil), "https://a.com/admin", RejectIgnored},
		{"empty ignore entry", NewFilter("", []string{""}, nil), "https://a.com/x", Accepted},
		{"custom extensions", NewFilter("", nil, []string{"pdf"}), "https://a.com/doc.pdf", RejectExtension},
		{"custom replaces defaults", NewFilter("", nil, []string{".pdf"}), "https://a.com/logo.png", Accepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Reason(tt.url))
			assert.Equal(t, tt.want == Accepted, tt.filter.Accept(tt.url))
		})
	}
}

func TestFilterEvaluatesEveryPredicate(t *testing.T) {
	f := NewFilter("other.com", []string{"/admin"}, nil)

	reasons := f.Reasons("ftp://a.com/admin/logo.png#top")
	assert.ElementsMatch(t, []Rejection{
		RejectScheme, RejectExtension, RejectFragment, RejectNoMatch, RejectIgnored,
	}, reasons)
}

func TestFilterUnparseable(t *testing.T) {
	f := NewFilter("", nil, nil)
	assert.Equal(t, RejectUnparseable, f.Reason("http://a.com/%zz"))
	assert.False(t, f.Accept("http://a.com/%zz"))
}
