package mapx_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/axent-pl/drmkit/mapx"
)

func TestGet(t *testing.T) {
	data := map[string]any{
		"foo":  "bar",
		"foos": []any{"bar1", "bar2"},
		"foofoo": map[string]any{
			"foo": "barbar",
		},
		"odd key": 1.0,
	}
	tests := []struct {
		name    string
		root    any
		path    string
		want    []any
		wantErr bool
	}{
		{
			name: "simple",
			root: data,
			path: ".foo",
			want: []any{"bar"},
		},
		{
			name: "bare identifier",
			root: data,
			path: "foofoo.foo",
			want: []any{"barbar"},
		},
		{
			name: "list by index",
			root: data,
			path: ".foos[0]",
			want: []any{"bar1"},
		},
		{
			name: "list by negative index",
			root: data,
			path: ".foos[-1]",
			want: []any{"bar2"},
		},
		{
			name: "list wildcard",
			root: data,
			path: ".foos[*]",
			want: []any{"bar1", "bar2"},
		},
		{
			name: "quoted key",
			root: data,
			path: `.["odd key"]`,
			want: []any{1.0},
		},
		{
			name: "recursive map",
			root: data,
			path: "..foo",
			want: []any{"bar", "barbar"},
		},
		{
			name: "missing",
			root: data,
			path: ".nope.deeper",
			want: nil,
		},
		{
			name:    "unclosed bracket",
			root:    data,
			path:    ".foos[0",
			wantErr: true,
		},
		{
			name:    "bad index",
			root:    data,
			path:    ".foos[x]",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotErr := mapx.Get(tt.root, tt.path)
			if gotErr != nil {
				if !tt.wantErr {
					t.Errorf("Get() failed: %v", gotErr)
				}
				return
			}
			if tt.wantErr {
				t.Fatal("Get() succeeded unexpectedly")
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Get() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetOne_Normalized(t *testing.T) {
	type playback struct {
		URL      string `json:"url"`
		Resolved bool   `json:"resolved"`
	}
	type result struct {
		State    string   `json:"state"`
		Playback playback `json:"playback"`
	}
	root, err := mapx.Normalize(result{State: "Done", Playback: playback{URL: "https://h/p", Resolved: true}})
	if err != nil {
		t.Fatalf("Normalize() failed: %v", err)
	}

	got, err := mapx.GetOne(root, ".playback.url")
	if err != nil {
		t.Fatalf("GetOne() failed: %v", err)
	}
	if got != "https://h/p" {
		t.Errorf("GetOne() = %v", got)
	}
	if _, err := mapx.GetOne(root, ".playback.missing"); !errors.Is(err, mapx.ErrNoMatch) {
		t.Errorf("GetOne() error = %v, want ErrNoMatch", err)
	}
	if _, err := mapx.GetOne(root, ".playback.*"); err == nil {
		t.Error("GetOne() over two values succeeded unexpectedly")
	}
}
