package http

import "testing"

func TestWSSubject(t *testing.T) {
	tests := []struct {
		channel, jurisdiction string
		want                  string
		wantErr               bool
	}{
		{"", "", "civic.requests.>", false},
		{"requests", "ignored", "civic.requests.>", false},
		{"routed", "", "civic.requests.routed.>", false},
		{"routed", "city.of springfield", "civic.requests.routed.city_of_springfield", false},
		{"unrouted", "", "civic.requests.unrouted", false},
		{"boundaries", "", "civic.boundaries.>", false},
		{"boundaries", "springfield", "civic.boundaries.changed.springfield", false},
		{"vehicles", "", "", true},
	}

	for _, tt := range tests {
		got, err := wsSubject(tt.channel, tt.jurisdiction)
		if (err != nil) != tt.wantErr {
			t.Fatalf("wsSubject(%q, %q) error = %v", tt.channel, tt.jurisdiction, err)
		}
		if got != tt.want {
			t.Errorf("wsSubject(%q, %q) = %q, want %q", tt.channel, tt.jurisdiction, got, tt.want)
		}
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		path, pattern string
		want          bool
	}{
		{"/v1/requests.json", "/v1/requests.json", true},
		{"/v1/projects/abc", "/v1/projects/:id", true},
		{"/v1/projects/abc/extra", "/v1/projects/:id", false},
		{"/v1/requests", "/v1/requests.json", false},
	}
	for _, tt := range tests {
		if got := matchPattern(tt.path, tt.pattern); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
		}
	}
}

func TestEtagMatches(t *testing.T) {
	etag := `W/"abc"`
	if !etagMatches(`"xyz", W/"abc"`, etag) {
		t.Error("expected list match")
	}
	if !etagMatches(`"abc"`, etag) {
		t.Error("expected weak comparison match")
	}
	if !etagMatches("*", etag) {
		t.Error("expected wildcard match")
	}
	if etagMatches("", etag) || etagMatches(`"other"`, etag) {
		t.Error("unexpected match")
	}
}

type fakeSub struct {
	subject string
	active  map[string]int
}

func (s *fakeSub) Unsubscribe() error {
	s.active[s.subject]--
	return nil
}

func newFakeFeed() (*wsFeed, map[string]int) {
	active := map[string]int{}
	feed := newWSFeed(func(subject string) (subscription, error) {
		active[subject]++
		return &fakeSub{subject: subject, active: active}, nil
	})
	return feed, active
}

func liveSubjects(active map[string]int) map[string]int {
	out := map[string]int{}
	for subject, n := range active {
		if n != 0 {
			out[subject] = n
		}
	}
	return out
}

func TestWSFeed_FirstSubscribeReplacesDefault(t *testing.T) {
	feed, active := newFakeFeed()
	if err := feed.start(); err != nil {
		t.Fatal(err)
	}

	routed := "civic.requests.routed.springfield"
	if status, err := feed.add(routed); err != nil || status != "subscribed" {
		t.Fatalf("add = %q, %v", status, err)
	}
	got := liveSubjects(active)
	if len(got) != 1 || got[routed] != 1 {
		t.Fatalf("expected only %s, got %v", routed, got)
	}

	// Later subscribes add to the explicit set.
	if _, err := feed.add("civic.requests.unrouted"); err != nil {
		t.Fatal(err)
	}
	if status, _ := feed.add(routed); status != "already subscribed" {
		t.Errorf("expected already subscribed, got %q", status)
	}
	if got := liveSubjects(active); len(got) != 2 {
		t.Errorf("expected 2 live subjects, got %v", got)
	}

	feed.close()
	if got := liveSubjects(active); len(got) != 0 {
		t.Errorf("expected no live subjects after close, got %v", got)
	}
}

func TestWSFeed_ExplicitDefaultKeepsSubscription(t *testing.T) {
	feed, active := newFakeFeed()
	if err := feed.start(); err != nil {
		t.Fatal(err)
	}

	if status, err := feed.add("civic.requests.>"); err != nil || status != "subscribed" {
		t.Fatalf("add = %q, %v", status, err)
	}
	if _, err := feed.add("civic.boundaries.>"); err != nil {
		t.Fatal(err)
	}
	got := liveSubjects(active)
	if got["civic.requests.>"] != 1 || got["civic.boundaries.>"] != 1 || len(got) != 2 {
		t.Errorf("unexpected subscriptions %v", got)
	}
}
