package semver

import (
	"errors"
	"sort"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{in: "1.2.3", want: New(1, 2, 3)},
		{in: " 0.0.0 ", want: New(0, 0, 0)},
		{in: "1.0.0-rc.1", want: Version{Major: 1, Pre: "rc.1"}},
		{in: "1.0.0-alpha-2+build.5", want: Version{Major: 1, Pre: "alpha-2", Build: "build.5"}},
		{in: "1.0.0+001", want: Version{Major: 1, Build: "001"}},
		{in: "1.2", wantErr: true},
		{in: "1.2.3.4", wantErr: true},
		{in: "01.2.3", wantErr: true},
		{in: "1.2.3-", wantErr: true},
		{in: "1.2.3-01", wantErr: true},
		{in: "a.b.c", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseVersion(%q) = %v, want error", tt.in, got)
				}
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("error %v does not wrap ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVersion(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	for _, s := range []string{"1.2.3", "0.0.1-beta.2", "3.0.0-rc.1+sha.abc"} {
		if got := MustParseVersion(s).String(); got != s {
			t.Errorf("String() = %q, want %q", got, s)
		}
	}
}

func TestVersionOrdering(t *testing.T) {
	ordered := []string{
		"1.0.0-alpha",
		"1.0.0-alpha.1",
		"1.0.0-alpha.beta",
		"1.0.0-beta",
		"1.0.0-beta.2",
		"1.0.0-beta.11",
		"1.0.0-rc.1",
		"1.0.0",
		"1.0.1",
		"1.2.0",
		"1.10.0",
		"2.0.0",
	}

	shuffled := []Version{}
	for i := len(ordered) - 1; i >= 0; i-- {
		shuffled = append(shuffled, MustParseVersion(ordered[i]))
	}
	sort.Slice(shuffled, func(i, j int) bool { return shuffled[i].Less(shuffled[j]) })

	for i, v := range shuffled {
		if v.String() != ordered[i] {
			t.Errorf("position %d = %s, want %s", i, v, ordered[i])
		}
	}
}

func TestParseRequirementString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.2.3", "^1.2.3"},
		{"^1.2", "^1.2"},
		{"~1", "~1"},
		{">= 1.2, < 2", ">=1.2, <2"},
		{">=1.2.0 <2.0.0", ">=1.2.0, <2.0.0"},
		{"1.x", "1.*"},
		{"=1.2.*", "1.2.*"},
		{"*", "*"},
		{"", "*"},
		{"^1 || ^2", "^1 || ^2"},
		{"1.2.3 - 2.3", ">=1.2.3, <=2.3"},
		{"v1.0.0", "^1.0.0"},
		{"~>1.4", "~1.4"},
		{"=1.0.0-rc.1", "=1.0.0-rc.1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			req, err := ParseRequirement(tt.in)
			if err != nil {
				t.Fatalf("ParseRequirement(%q) error: %v", tt.in, err)
			}
			if got := req.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRequirementErrors(t *testing.T) {
	for _, in := range []string{">=", "1.2.3.4", "^a.b", "1.2-beta", "1.0.0 -"} {
		if _, err := ParseRequirement(in); err == nil {
			t.Errorf("ParseRequirement(%q) expected error", in)
		}
	}
}

func TestRequirementMatches(t *testing.T) {
	tests := []struct {
		req     string
		version string
		want    bool
	}{
		{"^1.2.3", "1.2.3", true},
		{"^1.2.3", "1.9.0", true},
		{"^1.2.3", "2.0.0", false},
		{"^1.2.3", "1.2.2", false},
		{"^0.2.3", "0.2.9", true},
		{"^0.2.3", "0.3.0", false},
		{"^0.0.3", "0.0.4", false},
		{"^0", "0.9.9", true},
		{"~1.2.3", "1.2.9", true},
		{"~1.2.3", "1.3.0", false},
		{"~1", "1.9.0", true},
		{">1.2", "1.2.9", false},
		{">1.2", "1.3.0", true},
		{"<=1.2", "1.2.9", true},
		{"<=1.2", "1.3.0", false},
		{"<2", "1.99.0", true},
		{"=1.2", "1.2.7", true},
		{"1.*", "1.4.0", true},
		{"1.*", "2.0.0", false},
		{">=1.0.0, <2.0.0", "1.5.0", true},
		{">=1.0.0, <2.0.0", "2.0.0", false},
		{"^1 || ^3", "3.1.0", true},
		{"^1 || ^3", "2.1.0", false},
		{"*", "42.0.0", true},
		{"*", "1.0.0-rc.1", false},
		{"^1.0.0", "1.1.0-rc.1", false},
		{"^1.1.0-rc.0", "1.1.0-rc.1", true},
		{"^1.1.0-rc.0", "1.2.0-rc.1", false},
		{"1.2.3 - 2.3", "2.3.9", true},
		{"1.2.3 - 2.3", "2.4.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.req+" "+tt.version, func(t *testing.T) {
			req := MustParseRequirement(tt.req)
			if got := req.Matches(MustParseVersion(tt.version)); got != tt.want {
				t.Errorf("%q.Matches(%s) = %v, want %v", tt.req, tt.version, got, tt.want)
			}
		})
	}
}

func TestMinimumVersion(t *testing.T) {
	tests := []struct {
		req  string
		want string
	}{
		{"^1.2.3", "1.2.3"},
		{"~1.2", "1.2.0"},
		{">1.2", "1.3.0"},
		{">1", "2.0.0"},
		{">1.2.3", "1.2.4"},
		{"<1.2", "1.2.0"},
		{"<=1.2", "1.3.0"},
		{"<=1", "2.0.0"},
		{"<=1.2.3", "1.2.3"},
		{"^0.0.3", "0.0.3"},
		{"^0.0", "0.0.0"},
		{"^0", "0.0.0"},
		{"^0.4", "0.4.0"},
		{"~1", "1.0.0"},
		{"1.2.*", "1.2.0"},
		{"*", "0.0.0"},
		{"", "0.0.0"},
		{">=2.1, <3", "2.1.0"},
		{"^2 || ^1.4", "1.4.0"},
		{"not a version", "0.0.0"},
		{">18446744073709551615", "18446744073709551615.0.0"},
		{">1.18446744073709551615", "1.18446744073709551615.0"},
		{">1.2.18446744073709551615", "1.2.18446744073709551615"},
		{"<=18446744073709551615", "18446744073709551615.0.0"},
		{"^0.18446744073709551615", "0.18446744073709551615.0"},
	}

	for _, tt := range tests {
		t.Run(tt.req, func(t *testing.T) {
			if got := MinimumVersion(tt.req).String(); got != tt.want {
				t.Errorf("MinimumVersion(%q) = %s, want %s", tt.req, got, tt.want)
			}
		})
	}
}
