package core

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Kai Tanaka", "kai_tanaka"},
		{"  Mira  ", "mira"},
		{"Élan Knight!", "lan_knight"},
		{"multi   space   name", "multi_space_name"},
		{"already_a-slug", "already_a-slug"},
		{"", ""},
		{"ALLCAPS", "allcaps"},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
