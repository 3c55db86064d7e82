package query

import (
	"net/url"
	"reflect"
	"testing"
)

func TestBuild_WhereDegradesToEmpty(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{"valid", `{"completed":true}`, map[string]any{"completed": true}},
		{"malformed", `{"completed":`, map[string]any{}},
		{"non-object", `42`, map[string]any{}},
		{"absent", ``, map[string]any{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := url.Values{}
			if tc.raw != "" {
				params.Set("where", tc.raw)
			}
			p := Build(params)
			if !reflect.DeepEqual(p.Where, tc.want) {
				t.Errorf("Where = %v, want %v", p.Where, tc.want)
			}
		})
	}
}

func TestBuild_SelectWinsOverFilter(t *testing.T) {
	params := url.Values{}
	params.Set("select", `{"name":1}`)
	params.Set("filter", `{"email":1}`)
	p := Build(params)
	if !reflect.DeepEqual(p.Projection, map[string]any{"name": float64(1)}) {
		t.Errorf("Projection = %v, want select to win", p.Projection)
	}
}

func TestBuild_MalformedSelectFallsBackToFilter(t *testing.T) {
	params := url.Values{}
	params.Set("select", `{"name":`)
	params.Set("filter", `{"email":1}`)
	p := Build(params)
	if !reflect.DeepEqual(p.Projection, map[string]any{"email": float64(1)}) {
		t.Errorf("Projection = %v, want filter fallback", p.Projection)
	}
}

func TestBuild_Sort(t *testing.T) {
	params := url.Values{}
	params.Set("sort", `{"deadline":-1,"name":1}`)
	p := Build(params)
	want := []SortField{{Key: "deadline", Desc: true}, {Key: "name", Desc: false}}
	if !reflect.DeepEqual(p.Sort, want) {
		t.Errorf("Sort = %v, want %v", p.Sort, want)
	}
}

func TestBuild_SortDropsUnsafeKeysAndBadDirections(t *testing.T) {
	params := url.Values{}
	params.Set("sort", `{"name'; DROP TABLE tasks--":1,"name":"sideways","deadline":"desc"}`)
	p := Build(params)
	want := []SortField{{Key: "deadline", Desc: true}}
	if !reflect.DeepEqual(p.Sort, want) {
		t.Errorf("Sort = %v, want %v", p.Sort, want)
	}
}

func TestBuild_SortMalformedDegradesToNone(t *testing.T) {
	params := url.Values{}
	params.Set("sort", `["name"]`)
	if p := Build(params); p.Sort != nil {
		t.Errorf("Sort = %v, want nil", p.Sort)
	}
}

func TestBuild_SkipLimit(t *testing.T) {
	intPtr := func(n int) *int { return &n }
	cases := []struct {
		name string
		set  bool
		raw  string
		want *int
	}{
		{"absent", false, "", nil},
		{"number", true, "10", intPtr(10)},
		{"explicit zero", true, "0", intPtr(0)},
		{"present empty", true, "", intPtr(0)},
		{"garbage", true, "abc", nil},
		{"infinity", true, "Infinity", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := url.Values{}
			if tc.set {
				params.Set("limit", tc.raw)
			}
			p := Build(params)
			switch {
			case tc.want == nil && p.Limit != nil:
				t.Errorf("Limit = %d, want unset", *p.Limit)
			case tc.want != nil && p.Limit == nil:
				t.Errorf("Limit unset, want %d", *tc.want)
			case tc.want != nil && *p.Limit != *tc.want:
				t.Errorf("Limit = %d, want %d", *p.Limit, *tc.want)
			}
		})
	}
}

func TestBuild_Count(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"true", true},
		{"True", true},
		{"TRUE", true},
		{"false", false},
		{"1", false},
		{"", false},
	}
	for _, tc := range cases {
		params := url.Values{}
		if tc.raw != "" {
			params.Set("count", tc.raw)
		}
		if got := Build(params).Count; got != tc.want {
			t.Errorf("count=%q: got %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestBuild_KeyIsDeterministic(t *testing.T) {
	a := Build(url.Values{"where": {`{"a":1,"b":2}`}, "limit": {"5"}})
	b := Build(url.Values{"where": {`{"b":2,"a":1}`}, "limit": {"5"}})
	if a.Key() != b.Key() {
		t.Errorf("equal plans produced different keys: %q vs %q", a.Key(), b.Key())
	}
}

func TestApplyProjection_Inclusive(t *testing.T) {
	doc := map[string]any{"_id": "1", "name": "a", "email": "a@x.com"}
	got := ApplyProjection(map[string]any{"name": float64(1)}, doc)
	want := map[string]any{"_id": "1", "name": "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestApplyProjection_InclusiveSuppressID(t *testing.T) {
	doc := map[string]any{"_id": "1", "name": "a", "email": "a@x.com"}
	got := ApplyProjection(map[string]any{"name": float64(1), "_id": float64(0)}, doc)
	want := map[string]any{"name": "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestApplyProjection_Exclusive(t *testing.T) {
	doc := map[string]any{"_id": "1", "name": "a", "email": "a@x.com"}
	got := ApplyProjection(map[string]any{"email": float64(0)}, doc)
	want := map[string]any{"_id": "1", "name": "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
