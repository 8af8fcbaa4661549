package policy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/vadim/neo-planner/internal/domain/planning/constraint"
	"github.com/vadim/neo-planner/internal/domain/planning/dao"
	"github.com/vadim/neo-planner/internal/domain/planning/entity"
	"github.com/vadim/neo-planner/internal/domain/planning/queue"
	"github.com/vadim/neo-planner/internal/domain/planning/resolver"
	"github.com/vadim/neo-planner/internal/domain/planning/service"
)

type fakeProfiles struct {
	mu        sync.Mutex
	profiles  map[string]entity.Profile
	templates map[string]entity.QueueTemplate
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{
		profiles:  make(map[string]entity.Profile),
		templates: make(map[string]entity.QueueTemplate),
	}
}

func (f *fakeProfiles) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProfiles) Upsert(ctx context.Context, p *entity.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = *p
	tmpl := f.templates[p.ID]
	tmpl.ProfileID = p.ID
	tmpl.Timezone = p.Timezone
	f.templates[p.ID] = tmpl
	return nil
}

func (f *fakeProfiles) GetQueueTemplate(ctx context.Context, profileID string) (*entity.QueueTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tmpl, ok := f.templates[profileID]
	if !ok {
		return nil, nil
	}
	return &tmpl, nil
}

func (f *fakeProfiles) ReplaceQueueSlots(ctx context.Context, profileID string, slots []entity.QueueSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tmpl := f.templates[profileID]
	tmpl.Slots = append([]entity.QueueSlot(nil), slots...)
	f.templates[profileID] = tmpl
	return nil
}

type fakePosts struct {
	mu       sync.Mutex
	posts    map[string]entity.Post
	reserved map[int64]string // minute key -> post id
	// stolen counts reservations that lose to a concurrent writer
	stolen int
}

func newFakePosts() *fakePosts {
	return &fakePosts{
		posts:    make(map[string]entity.Post),
		reserved: make(map[int64]string),
	}
}

func (f *fakePosts) Create(ctx context.Context, post *entity.Post, intent entity.ScheduleIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts[post.ID] = *post
	return nil
}

func (f *fakePosts) CreateReserved(ctx context.Context, post *entity.Post, intent entity.ScheduleIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := post.ScheduledFor.Truncate(time.Minute).Unix()
	if f.stolen > 0 {
		f.stolen--
		f.reserved[key] = "concurrent"
		f.posts["concurrent"] = entity.Post{ID: "concurrent", ProfileID: post.ProfileID, Status: entity.PostStatusScheduled, ScheduledFor: post.ScheduledFor}
		return entity.ErrSlotTaken
	}
	if _, ok := f.reserved[key]; ok {
		return entity.ErrSlotTaken
	}
	f.reserved[key] = post.ID
	f.posts[post.ID] = *post
	return nil
}

func (f *fakePosts) GetByID(ctx context.Context, id string) (*entity.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakePosts) ListInRange(ctx context.Context, filter dao.PostFilter, start, end time.Time) ([]entity.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Post
	for _, p := range f.posts {
		if p.ScheduledFor == nil || p.ScheduledFor.Before(start) || !p.ScheduledFor.Before(end) {
			continue
		}
		if filter.ProfileID != "" && p.ProfileID != filter.ProfileID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePosts) OccupiedInstants(ctx context.Context, profileID string, after time.Time) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []time.Time
	for _, p := range f.posts {
		if p.ProfileID == profileID && p.ScheduledFor != nil && p.ScheduledFor.After(after) && p.Status.OccupiesQueue() {
			out = append(out, *p.ScheduledFor)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (f *fakePosts) UpdateStatus(ctx context.Context, id string, status entity.PostStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return entity.ErrPostNotFound
	}
	p.Status = status
	f.posts[id] = p
	return nil
}

func (f *fakePosts) PruneReservations(ctx context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for key, id := range f.reserved {
		p := f.posts[id]
		if time.Unix(key, 0).Before(before) || !p.Status.OccupiesQueue() {
			delete(f.reserved, key)
			n++
		}
	}
	return n, nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	payloads []entity.PublishPayload
	err      error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, payload entity.PublishPayload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.payloads = append(d.payloads, payload)
	return nil
}

// 2024-01-10 is a Wednesday
var testNow = time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	policy     *Policy
	profiles   *fakeProfiles
	posts      *fakePosts
	dispatcher *fakeDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	profiles := newFakeProfiles()
	posts := newFakePosts()
	dispatcher := &fakeDispatcher{}
	planner := queue.NewPlanner()
	res := resolver.New(planner, resolver.WithClock(func() time.Time { return testNow }))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p := New(
		service.New(profiles, posts),
		constraint.MustNewValidator(constraint.DefaultTable()),
		planner,
		res,
		dispatcher,
		logger,
	)

	_, err := p.ConfigureQueue(context.Background(), service.ConfigureQueueInput{
		ProfileID: "p1",
		Name:      "Main",
		Timezone:  "UTC",
		Slots: []entity.QueueSlot{
			{Weekday: time.Monday, Hour: 9, Minute: 0},
			{Weekday: time.Wednesday, Hour: 15, Minute: 0},
		},
	})
	if err != nil {
		t.Fatalf("configure queue: %v", err)
	}

	return &fixture{policy: p, profiles: profiles, posts: posts, dispatcher: dispatcher}
}

func imageDraft(targets ...entity.PlatformTarget) *entity.DraftPost {
	return &entity.DraftPost{
		Content:    "hello",
		MediaItems: []entity.MediaItem{{Type: entity.MediaTypeImage, URL: "https://cdn.example.com/a.jpg"}},
		Targets:    targets,
	}
}

func TestSubmitPostQueue(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	out, err := f.policy.SubmitPost(ctx, SubmitPostInput{
		Draft:  imageDraft(entity.PlatformTarget{Platform: entity.PlatformTwitter, AccountID: "tw-1"}),
		Intent: entity.QueueIntent{ProfileID: "p1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2024, time.January, 10, 15, 0, 0, 0, time.UTC)
	if !out.Schedule.UTCInstant.Equal(want) {
		t.Fatalf("expected %v, got %v", want, out.Schedule.UTCInstant)
	}
	if out.Post.Status != entity.PostStatusScheduled || out.Post.ProfileID != "p1" {
		t.Fatalf("unexpected post: %+v", out.Post)
	}
	if len(f.dispatcher.payloads) != 1 || !f.dispatcher.payloads[0].ScheduledForUTC.Equal(want) {
		t.Fatalf("expected one dispatch at %v, got %+v", want, f.dispatcher.payloads)
	}

	// the next queue post lands on the following slot
	out, err = f.policy.SubmitPost(ctx, SubmitPostInput{
		Draft:  imageDraft(entity.PlatformTarget{Platform: entity.PlatformTwitter, AccountID: "tw-1"}),
		Intent: entity.QueueIntent{ProfileID: "p1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
	if !out.Schedule.UTCInstant.Equal(want) {
		t.Fatalf("expected %v, got %v", want, out.Schedule.UTCInstant)
	}
}

func TestSubmitPostReportsBothErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	out, err := f.policy.SubmitPost(context.Background(), SubmitPostInput{
		Draft: imageDraft(entity.PlatformTarget{Platform: entity.PlatformYouTube, AccountID: "yt-1"}),
		Intent: entity.ScheduledIntent{
			Date:     "2024-01-09",
			Time:     "10:00",
			Timezone: "UTC",
		},
	})
	if !errors.Is(err, entity.ErrConstraintViolations) {
		t.Fatalf("expected constraint violations, got %v", err)
	}
	if !errors.Is(err, entity.ErrScheduleInPast) {
		t.Fatalf("expected schedule in past, got %v", err)
	}
	if out == nil || out.Report.Valid() {
		t.Fatalf("expected an invalid report, got %+v", out)
	}
	tr, ok := out.Report.For("yt-1")
	if !ok || tr.Violations[0].Kind != entity.ViolationMissingRequiredVideo {
		t.Fatalf("unexpected report: %+v", out.Report)
	}
	if out.Schedule == nil {
		t.Fatal("expected the past schedule to be reported")
	}
	if out.Post != nil || len(f.dispatcher.payloads) != 0 {
		t.Fatal("nothing should be persisted or dispatched")
	}
}

func TestSubmitPostAllowPartial(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	draft := imageDraft(
		entity.PlatformTarget{Platform: entity.PlatformYouTube, AccountID: "yt-1"},
		entity.PlatformTarget{Platform: entity.PlatformTwitter, AccountID: "tw-1"},
	)

	_, err := f.policy.SubmitPost(context.Background(), SubmitPostInput{
		Draft:  draft,
		Intent: entity.NowIntent{},
	})
	if !errors.Is(err, entity.ErrConstraintViolations) {
		t.Fatalf("expected constraint violations without allow_partial, got %v", err)
	}

	out, err := f.policy.SubmitPost(context.Background(), SubmitPostInput{
		Draft:        draft,
		Intent:       entity.NowIntent{},
		ProfileID:    "p1",
		AllowPartial: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Post.Targets) != 1 || out.Post.Targets[0].AccountID != "tw-1" {
		t.Fatalf("expected only the twitter target, got %+v", out.Post.Targets)
	}
	if len(out.Skipped) != 1 || out.Skipped[0].AccountID != "yt-1" {
		t.Fatalf("expected youtube to be skipped, got %+v", out.Skipped)
	}
	if !out.Schedule.UTCInstant.Equal(testNow) {
		t.Fatalf("expected now, got %v", out.Schedule.UTCInstant)
	}
}

func TestSubmitPostReResolvesTakenSlot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.posts.stolen = 1

	out, err := f.policy.SubmitPost(context.Background(), SubmitPostInput{
		Draft:  imageDraft(entity.PlatformTarget{Platform: entity.PlatformTwitter, AccountID: "tw-1"}),
		Intent: entity.QueueIntent{ProfileID: "p1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
	if !out.Schedule.UTCInstant.Equal(want) {
		t.Fatalf("expected %v after conflict, got %v", want, out.Schedule.UTCInstant)
	}
	if !out.Post.ScheduledFor.Equal(want) {
		t.Fatalf("post stored at %v", out.Post.ScheduledFor)
	}
}

func TestSubmitPostGivesUpAfterAttempts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.posts.stolen = DefaultReserveAttempts

	_, err := f.policy.SubmitPost(context.Background(), SubmitPostInput{
		Draft:  imageDraft(entity.PlatformTarget{Platform: entity.PlatformTwitter, AccountID: "tw-1"}),
		Intent: entity.QueueIntent{ProfileID: "p1"},
	})
	if !errors.Is(err, entity.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestSubmitPostDispatchFailureMarksFailed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dispatcher.err = errors.New("redis unavailable")

	out, err := f.policy.SubmitPost(context.Background(), SubmitPostInput{
		Draft:  imageDraft(entity.PlatformTarget{Platform: entity.PlatformTwitter, AccountID: "tw-1"}),
		Intent: entity.QueueIntent{ProfileID: "p1"},
	})
	if err == nil {
		t.Fatal("expected dispatch error")
	}
	if out.Post == nil || out.Post.Status != entity.PostStatusFailed {
		t.Fatalf("expected failed post, got %+v", out.Post)
	}

	stored, _ := f.posts.GetByID(context.Background(), out.Post.ID)
	if stored.Status != entity.PostStatusFailed {
		t.Fatalf("expected stored status failed, got %s", stored.Status)
	}

	// a failed post frees its slot
	next, err := f.policy.NextQueueSlot(context.Background(), "p1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Next.Equal(time.Date(2024, time.January, 10, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected the slot to be free again, got %v", next.Next)
	}
}

func TestSubmitPostUnknownProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.policy.SubmitPost(context.Background(), SubmitPostInput{
		Draft:  imageDraft(entity.PlatformTarget{Platform: entity.PlatformTwitter, AccountID: "tw-1"}),
		Intent: entity.QueueIntent{ProfileID: "missing"},
	})
	if !errors.Is(err, entity.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestSubmitPostScheduledProfile(t *testing.T) {
	t.Parallel()

	intent := entity.ScheduledIntent{Date: "2024-01-20", Time: "10:00", Timezone: "UTC"}

	tests := []struct {
		name      string
		profileID string
		wantErr   error
	}{
		{"no profile", "", nil},
		{"known profile", "p1", nil},
		{"unknown profile", "ghost", entity.ErrProfileNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			out, err := f.policy.SubmitPost(context.Background(), SubmitPostInput{
				Draft:     imageDraft(entity.PlatformTarget{Platform: entity.PlatformTwitter, AccountID: "tw-1"}),
				Intent:    intent,
				ProfileID: tt.profileID,
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if len(f.posts.posts) != 0 || len(f.dispatcher.payloads) != 0 {
					t.Fatal("nothing should be stored or dispatched")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Post.ProfileID != tt.profileID {
				t.Fatalf("expected profile %q, got %q", tt.profileID, out.Post.ProfileID)
			}
		})
	}
}

func TestGetPostMalformedID(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"not-a-uuid", "", "123"} {
		if _, err := f.policy.GetPost(ctx, id); !errors.Is(err, entity.ErrPostNotFound) {
			t.Fatalf("GetPost(%q): expected ErrPostNotFound, got %v", id, err)
		}
		if _, err := f.policy.UpdatePostStatus(ctx, id, entity.PostStatusPublishing); !errors.Is(err, entity.ErrPostNotFound) {
			t.Fatalf("UpdatePostStatus(%q): expected ErrPostNotFound, got %v", id, err)
		}
	}

	// a well-formed id that was never stored
	if _, err := f.policy.GetPost(ctx, "3f1c2b9e-6d7a-4c1e-9b2a-0d4e5f6a7b8c"); !errors.Is(err, entity.ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestNextQueueSlot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	out, err := f.policy.NextQueueSlot(context.Background(), "p1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{
		time.Date(2024, time.January, 10, 15, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 17, 15, 0, 0, 0, time.UTC),
	}
	if len(out.Upcoming) != len(want) {
		t.Fatalf("expected %d slots, got %v", len(want), out.Upcoming)
	}
	for i := range want {
		if !out.Upcoming[i].Equal(want[i]) {
			t.Fatalf("slot %d: expected %v, got %v", i, want[i], out.Upcoming[i])
		}
	}
	if !out.Next.Equal(want[0]) || out.Timezone != "UTC" {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestResolveSchedulePreset(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	got, err := f.policy.ResolveSchedule(context.Background(), ResolveScheduleInput{
		Preset:         resolver.PresetTomorrowMorning,
		PresetTimezone: "America/New_York",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2024-01-11 09:00 EST
	want := time.Date(2024, time.January, 11, 14, 0, 0, 0, time.UTC)
	if !got.UTCInstant.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got.UTCInstant)
	}
}

func TestCalendar(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.policy.SubmitPost(ctx, SubmitPostInput{
			Draft:  imageDraft(entity.PlatformTarget{Platform: entity.PlatformTwitter, AccountID: "tw-1"}),
			Intent: entity.QueueIntent{ProfileID: "p1"},
		}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	grid, err := f.policy.Calendar(ctx, CalendarInput{
		ProfileID: "p1",
		Year:      2024,
		Month:     time.January,
		Timezone:  "UTC",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grid.Cells) != 35 {
		t.Fatalf("expected 35 cells, got %d", len(grid.Cells))
	}
	if grid.Stats.ScheduledCount != 2 {
		t.Fatalf("expected 2 scheduled, got %+v", grid.Stats)
	}
	for _, key := range []string{"2024-01-10", "2024-01-15"} {
		cell, ok := grid.Cell(key)
		if !ok || len(cell.Posts) != 1 {
			t.Fatalf("expected one post on %s, got %+v", key, cell)
		}
	}
	today, _ := grid.Cell("2024-01-10")
	if !today.IsToday {
		t.Fatal("expected 2024-01-10 to be today")
	}
}

func TestUpdatePostStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	out, err := f.policy.SubmitPost(ctx, SubmitPostInput{
		Draft:  imageDraft(entity.PlatformTarget{Platform: entity.PlatformTwitter, AccountID: "tw-1"}),
		Intent: entity.QueueIntent{ProfileID: "p1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.policy.UpdatePostStatus(ctx, out.Post.ID, entity.PostStatusPublished); !errors.Is(err, entity.ErrInvalidStatus) {
		t.Fatalf("scheduled -> published should be rejected, got %v", err)
	}
	if _, err := f.policy.UpdatePostStatus(ctx, out.Post.ID, "bogus"); !errors.Is(err, entity.ErrInvalidStatus) {
		t.Fatalf("unknown status should be rejected, got %v", err)
	}
	post, err := f.policy.UpdatePostStatus(ctx, out.Post.ID, entity.PostStatusPublishing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post.Status != entity.PostStatusPublishing {
		t.Fatalf("expected publishing, got %s", post.Status)
	}
	if _, err := f.policy.UpdatePostStatus(ctx, "nope", entity.PostStatusFailed); !errors.Is(err, entity.ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestPruneReservations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	out, err := f.policy.SubmitPost(ctx, SubmitPostInput{
		Draft:  imageDraft(entity.PlatformTarget{Platform: entity.PlatformTwitter, AccountID: "tw-1"}),
		Intent: entity.QueueIntent{ProfileID: "p1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.policy.PruneReservations(ctx, testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.posts.reserved) != 1 {
		t.Fatalf("active reservation should survive, got %d", len(f.posts.reserved))
	}

	if _, err := f.policy.UpdatePostStatus(ctx, out.Post.ID, entity.PostStatusFailed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, err := f.policy.PruneReservations(ctx, testNow); err != nil || n != 1 {
		t.Fatalf("expected one pruned reservation, got %d, %v", n, err)
	}
	if len(f.posts.reserved) != 0 {
		t.Fatalf("failed post's reservation should be pruned, got %d", len(f.posts.reserved))
	}
}

func TestPlatformsAndTimezones(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	platforms := f.policy.Platforms()
	if len(platforms) != len(entity.Platforms) {
		t.Fatalf("expected %d platforms, got %d", len(entity.Platforms), len(platforms))
	}
	for _, p := range platforms {
		if p.Platform == entity.PlatformYouTube && !p.Constraint.RequiresVideo {
			t.Fatal("youtube should require video")
		}
	}

	zones := f.policy.Timezones("Asia/Kathmandu", "Not/AZone")
	if len(zones) == 0 || zones[0].ID != "UTC" {
		t.Fatalf("expected UTC first, got %+v", zones)
	}
	found := false
	for _, z := range zones {
		if z.ID == "Not/AZone" {
			t.Fatal("invalid zone should be dropped")
		}
		if z.ID == "Asia/Kathmandu" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected extra zone to be listed")
	}
}
