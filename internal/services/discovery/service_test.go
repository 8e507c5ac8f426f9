package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/commie294/T4t/internal/domain/enums"
	pgrepo "github.com/commie294/T4t/internal/repo/postgres"
)

type fakeProfileStore struct {
	records map[int64]pgrepo.ProfileRecord
}

func (f *fakeProfileStore) GetByUserID(_ context.Context, userID int64) (pgrepo.ProfileRecord, error) {
	rec, ok := f.records[userID]
	if !ok {
		return pgrepo.ProfileRecord{}, pgrepo.ErrProfileNotFound
	}
	return rec, nil
}

// fakeCandidateStore replays canned answers and records every query so the
// tests can assert on filter construction and the recency fallback.
type fakeCandidateStore struct {
	queries []pgrepo.CandidateQuery
	answers []candidateAnswer
}

type candidateAnswer struct {
	rec pgrepo.ProfileRecord
	err error
}

func (f *fakeCandidateStore) PickRandom(_ context.Context, q pgrepo.CandidateQuery) (pgrepo.ProfileRecord, error) {
	f.queries = append(f.queries, q)
	if len(f.answers) == 0 {
		return pgrepo.ProfileRecord{}, pgrepo.ErrNoCandidate
	}
	ans := f.answers[0]
	f.answers = f.answers[1:]
	return ans.rec, ans.err
}

type fakeViewStore struct {
	viewer int64
	seen   int64
	at     time.Time
	calls  int
	err    error
}

func (f *fakeViewStore) Upsert(_ context.Context, viewerUserID, seenUserID int64, at time.Time) error {
	f.calls++
	f.viewer = viewerUserID
	f.seen = seenUserID
	f.at = at
	return f.err
}

func adultRequester() pgrepo.ProfileRecord {
	return pgrepo.ProfileRecord{
		UserID:        1,
		DisplayName:   "Алекс",
		Age:           25,
		IsAdult:       true,
		City:          "Минск",
		AgePreference: "26-35",
	}
}

func newTestService(profiles *fakeProfileStore, candidates *fakeCandidateStore, views *fakeViewStore) *Service {
	svc := NewService(Dependencies{Profiles: profiles, Candidates: candidates, Views: views}, Config{ViewCooldown: time.Hour})
	svc.now = func() time.Time { return time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestNextCandidateBuildsAdultQuery(t *testing.T) {
	profiles := &fakeProfileStore{records: map[int64]pgrepo.ProfileRecord{1: adultRequester()}}
	candidate := pgrepo.ProfileRecord{UserID: 2, DisplayName: "Женя", Age: 30, IsAdult: true, City: "Гомель"}
	candidates := &fakeCandidateStore{answers: []candidateAnswer{{rec: candidate}}}
	views := &fakeViewStore{}

	svc := newTestService(profiles, candidates, views)

	got, err := svc.NextCandidate(context.Background(), 1, enums.CityModeAny)
	if err != nil {
		t.Fatalf("next candidate: %v", err)
	}
	if got.UserID != 2 {
		t.Fatalf("unexpected candidate: %+v", got)
	}

	if len(candidates.queries) != 1 {
		t.Fatalf("expected a single query, got %d", len(candidates.queries))
	}
	q := candidates.queries[0]
	if q.ViewerUserID != 1 || !q.IsAdult {
		t.Fatalf("unexpected query identity: %+v", q)
	}
	if q.AgeMin != 26 || q.AgeMax != 35 {
		t.Fatalf("age preference not applied: %+v", q)
	}
	if q.SameCity != "" || q.OtherCity != "" {
		t.Fatalf("city filter must be empty in any mode: %+v", q)
	}
	if q.ShownCutoff == nil {
		t.Fatalf("first pass must exclude recently shown profiles")
	}
	wantCutoff := time.Date(2026, time.August, 1, 11, 0, 0, 0, time.UTC)
	if !q.ShownCutoff.Equal(wantCutoff) {
		t.Fatalf("unexpected cutoff: %v", q.ShownCutoff)
	}

	if views.calls != 1 || views.viewer != 1 || views.seen != 2 {
		t.Fatalf("view not recorded: %+v", views)
	}
}

func TestNextCandidateMinorIgnoresAgePreference(t *testing.T) {
	requester := adultRequester()
	requester.Age = 17
	requester.IsAdult = false
	profiles := &fakeProfileStore{records: map[int64]pgrepo.ProfileRecord{1: requester}}
	candidates := &fakeCandidateStore{answers: []candidateAnswer{{rec: pgrepo.ProfileRecord{UserID: 3, Age: 16}}}}

	svc := newTestService(profiles, candidates, &fakeViewStore{})

	if _, err := svc.NextCandidate(context.Background(), 1, enums.CityModeAny); err != nil {
		t.Fatalf("next candidate: %v", err)
	}

	q := candidates.queries[0]
	if q.IsAdult {
		t.Fatalf("minor requester must search the minor partition")
	}
	if q.AgeMin != 0 || q.AgeMax != 0 {
		t.Fatalf("stale age preference must not constrain a minor: %+v", q)
	}
}

func TestNextCandidateCityModes(t *testing.T) {
	cases := []struct {
		name      string
		mode      enums.CityMode
		wantSame  string
		wantOther string
	}{
		{name: "same_city", mode: enums.CityModeSame, wantSame: "Минск"},
		{name: "other_city", mode: enums.CityModeOther, wantOther: "Минск"},
		{name: "any_city", mode: enums.CityModeAny},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profiles := &fakeProfileStore{records: map[int64]pgrepo.ProfileRecord{1: adultRequester()}}
			candidates := &fakeCandidateStore{answers: []candidateAnswer{{rec: pgrepo.ProfileRecord{UserID: 2}}}}

			svc := newTestService(profiles, candidates, &fakeViewStore{})
			if _, err := svc.NextCandidate(context.Background(), 1, tc.mode); err != nil {
				t.Fatalf("next candidate: %v", err)
			}

			q := candidates.queries[0]
			if q.SameCity != tc.wantSame || q.OtherCity != tc.wantOther {
				t.Fatalf("unexpected city filter: %+v", q)
			}
		})
	}
}

func TestNextCandidateFallsBackWithoutRecencyFilter(t *testing.T) {
	profiles := &fakeProfileStore{records: map[int64]pgrepo.ProfileRecord{1: adultRequester()}}
	candidate := pgrepo.ProfileRecord{UserID: 2, Age: 27, IsAdult: true}
	candidates := &fakeCandidateStore{answers: []candidateAnswer{
		{err: pgrepo.ErrNoCandidate},
		{rec: candidate},
	}}
	views := &fakeViewStore{}

	svc := newTestService(profiles, candidates, views)

	got, err := svc.NextCandidate(context.Background(), 1, enums.CityModeAny)
	if err != nil {
		t.Fatalf("next candidate: %v", err)
	}
	if got.UserID != 2 {
		t.Fatalf("unexpected candidate: %+v", got)
	}

	if len(candidates.queries) != 2 {
		t.Fatalf("expected fallback query, got %d queries", len(candidates.queries))
	}
	if candidates.queries[0].ShownCutoff == nil {
		t.Fatalf("first pass must carry the recency cutoff")
	}
	if candidates.queries[1].ShownCutoff != nil {
		t.Fatalf("fallback pass must drop the recency cutoff")
	}
	if views.calls != 1 {
		t.Fatalf("re-surfaced candidate must refresh the view record")
	}
}

func TestNextCandidateExhaustedPool(t *testing.T) {
	profiles := &fakeProfileStore{records: map[int64]pgrepo.ProfileRecord{1: adultRequester()}}
	candidates := &fakeCandidateStore{}
	views := &fakeViewStore{}

	svc := newTestService(profiles, candidates, views)

	if _, err := svc.NextCandidate(context.Background(), 1, enums.CityModeAny); !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
	if views.calls != 0 {
		t.Fatalf("no view must be recorded when the pool is empty")
	}
}

func TestNextCandidateRequesterChecks(t *testing.T) {
	blocked := adultRequester()
	blocked.UserID = 2
	blocked.Blocked = true
	profiles := &fakeProfileStore{records: map[int64]pgrepo.ProfileRecord{2: blocked}}

	svc := newTestService(profiles, &fakeCandidateStore{}, &fakeViewStore{})
	ctx := context.Background()

	if _, err := svc.NextCandidate(ctx, 99, enums.CityModeAny); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if _, err := svc.NextCandidate(ctx, 2, enums.CityModeAny); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}
	if _, err := svc.NextCandidate(ctx, 0, enums.CityModeAny); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
