package content

import (
	"context"
	"errors"
	"testing"

	"github.com/IliaW/robots-gate/internal/model"
	"github.com/stretchr/testify/assert"
)

type stubProber struct {
	result *model.ProbeResult
	err    error
}

func (p *stubProber) Probe(context.Context, string) (*model.ProbeResult, error) {
	return p.result, p.err
}

func Test_Gate_Check(t *testing.T) {
	testSet := []struct {
		name     string
		result   *model.ProbeResult
		err      error
		expected model.ContentVerdict
	}{
		{
			name:     "small html page",
			result:   &model.ProbeResult{StatusCode: 200, ContentType: "text/html", ContentLength: "1024"},
			expected: model.Admissible,
		},
		{
			name:     "text with charset and no length",
			result:   &model.ProbeResult{StatusCode: 200, ContentType: "text/plain; charset=utf-8"},
			expected: model.Admissible,
		},
		{
			name:     "length at the limit",
			result:   &model.ProbeResult{StatusCode: 200, ContentType: "text/html", ContentLength: "262144"},
			expected: model.Admissible,
		},
		{
			name:     "length over the limit",
			result:   &model.ProbeResult{StatusCode: 200, ContentType: "text/html", ContentLength: "262145"},
			expected: model.RejectedContentLength,
		},
		{
			name:     "pdf",
			result:   &model.ProbeResult{StatusCode: 200, ContentType: "application/pdf", ContentLength: "10"},
			expected: model.RejectedMimeType,
		},
		{
			name:     "mime is checked before length",
			result:   &model.ProbeResult{StatusCode: 200, ContentType: "image/png", ContentLength: "99999999"},
			expected: model.RejectedMimeType,
		},
		{
			name:     "mime type is case-insensitive",
			result:   &model.ProbeResult{StatusCode: 200, ContentType: "Text/HTML"},
			expected: model.Admissible,
		},
		{
			name:     "missing content type",
			result:   &model.ProbeResult{StatusCode: 200},
			expected: model.Unknown,
		},
		{
			name:     "unparseable content length",
			result:   &model.ProbeResult{StatusCode: 200, ContentType: "text/html", ContentLength: "abc"},
			expected: model.Unknown,
		},
		{
			name:     "probe failed",
			err:      errors.New("i/o timeout"),
			expected: model.Unknown,
		},
	}
	for _, test := range testSet {
		t.Run(test.name, func(tt *testing.T) {
			gate := NewGate(&stubProber{result: test.result, err: test.err}, DefaultMaxContentLength)
			assert.Equal(tt, test.expected, gate.Check(context.Background(), "http://example.com/page"))
		})
	}
}

func Test_NewGate_DefaultLimit(t *testing.T) {
	gate := NewGate(&stubProber{}, 0)
	assert.Equal(t, int64(DefaultMaxContentLength), gate.maxContentLength)
}
