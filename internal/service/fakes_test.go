package service

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ytsm/subscription-manager-go/internal/db"
	"github.com/ytsm/subscription-manager-go/internal/db/models"
	"github.com/ytsm/subscription-manager-go/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

func boolPtr(v bool) *bool       { return &v }
func intPtr(v int) *int          { return &v }
func strPtr(v string) *string    { return &v }
func int64Ptr(v int64) *int64    { return &v }

// memRepos bundles the in-memory repositories sharing one id space each.
type memRepos struct {
	channels *memChannelRepo
	folders  *memFolderRepo
	subs     *memSubscriptionRepo
	videos   *memVideoRepo
	settings *memSettingsRepo
}

func newMemRepos() *memRepos {
	subs := &memSubscriptionRepo{rows: make(map[int64]*models.Subscription)}
	folders := &memFolderRepo{rows: make(map[int64]*models.SubscriptionFolder), subs: subs}
	return &memRepos{
		channels: &memChannelRepo{rows: make(map[int64]*models.Channel)},
		folders:  folders,
		subs:     subs,
		videos:   &memVideoRepo{rows: make(map[int64]*models.Video), subs: subs},
		settings: &memSettingsRepo{rows: make(map[int64]*models.UserSettings)},
	}
}

// --- channels ---

type memChannelRepo struct {
	mu     sync.Mutex
	rows   map[int64]*models.Channel
	nextID int64
}

func (r *memChannelRepo) Create(_ context.Context, channel *models.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ChannelID == channel.ChannelID {
			return db.ErrDuplicateKey
		}
	}
	r.nextID++
	channel.ID = r.nextID
	cp := *channel
	r.rows[channel.ID] = &cp
	return nil
}

func (r *memChannelRepo) Update(_ context.Context, channel *models.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[channel.ID]; !ok {
		return db.ErrNotFound
	}
	cp := *channel
	r.rows[channel.ID] = &cp
	return nil
}

func (r *memChannelRepo) GetByID(_ context.Context, id int64) (*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *memChannelRepo) GetByChannelID(_ context.Context, channelID string) (*models.Channel, error) {
	return r.find(func(c *models.Channel) bool { return c.ChannelID == channelID })
}

func (r *memChannelRepo) GetByUsername(_ context.Context, username string) (*models.Channel, error) {
	return r.find(func(c *models.Channel) bool { return c.Username != nil && *c.Username == username })
}

func (r *memChannelRepo) GetByCustomURL(_ context.Context, customURL string) (*models.Channel, error) {
	return r.find(func(c *models.Channel) bool { return c.CustomURL != nil && *c.CustomURL == customURL })
}

func (r *memChannelRepo) find(match func(*models.Channel) bool) (*models.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if match(row) {
			cp := *row
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

// --- folders ---

type memFolderRepo struct {
	mu     sync.Mutex
	rows   map[int64]*models.SubscriptionFolder
	subs   *memSubscriptionRepo
	nextID int64
}

func (r *memFolderRepo) Create(_ context.Context, folder *models.SubscriptionFolder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	folder.ID = r.nextID
	cp := *folder
	r.rows[folder.ID] = &cp
	return nil
}

func (r *memFolderRepo) GetByID(_ context.Context, id int64) (*models.SubscriptionFolder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *memFolderRepo) Update(_ context.Context, folder *models.SubscriptionFolder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[folder.ID]; !ok {
		return db.ErrNotFound
	}
	cp := *folder
	r.rows[folder.ID] = &cp
	return nil
}

// Delete removes the folder, its descendant folders and every subscription
// contained in the removed folders, mirroring the database cascade.
func (r *memFolderRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	if _, ok := r.rows[id]; !ok {
		r.mu.Unlock()
		return db.ErrNotFound
	}

	doomed := map[int64]bool{id: true}
	for {
		grew := false
		for _, row := range r.rows {
			if row.ParentID != nil && doomed[*row.ParentID] && !doomed[row.ID] {
				doomed[row.ID] = true
				grew = true
			}
		}
		if !grew {
			break
		}
	}
	for folderID := range doomed {
		delete(r.rows, folderID)
	}
	r.mu.Unlock()

	if r.subs != nil {
		r.subs.deleteByFolders(doomed)
	}
	return nil
}

func (r *memFolderRepo) ListByParent(_ context.Context, userID int64, parentID *int64) ([]*models.SubscriptionFolder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SubscriptionFolder
	for _, row := range r.rows {
		if row.UserID != userID {
			continue
		}
		if !samePtr(row.ParentID, parentID) {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- subscriptions ---

type memSubscriptionRepo struct {
	mu     sync.Mutex
	rows   map[int64]*models.Subscription
	nextID int64
}

func (r *memSubscriptionRepo) Create(_ context.Context, sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == sub.UserID && row.PlaylistID == sub.PlaylistID {
			return db.ErrDuplicateKey
		}
	}
	r.nextID++
	sub.ID = r.nextID
	cp := *sub
	r.rows[sub.ID] = &cp
	return nil
}

func (r *memSubscriptionRepo) Update(_ context.Context, sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[sub.ID]; !ok {
		return db.ErrNotFound
	}
	cp := *sub
	r.rows[sub.ID] = &cp
	return nil
}

func (r *memSubscriptionRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return db.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memSubscriptionRepo) GetByID(_ context.Context, id int64) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *memSubscriptionRepo) GetByPlaylistID(_ context.Context, userID int64, playlistID string) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == userID && row.PlaylistID == playlistID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *memSubscriptionRepo) ListByFolder(_ context.Context, userID int64, folderID *int64) ([]*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Subscription
	for _, row := range r.rows {
		if row.UserID != userID {
			continue
		}
		if !samePtr(row.FolderID, folderID) {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memSubscriptionRepo) ListByUser(_ context.Context, userID int64) ([]*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Subscription
	for _, row := range r.rows {
		if row.UserID == userID {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memSubscriptionRepo) ListAll(_ context.Context) ([]*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Subscription
	for _, row := range r.rows {
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memSubscriptionRepo) DetachFromFolder(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return db.ErrNotFound
	}
	row.FolderID = nil
	return nil
}

func (r *memSubscriptionRepo) deleteByFolders(folderIDs map[int64]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.FolderID != nil && folderIDs[*row.FolderID] {
			delete(r.rows, id)
		}
	}
}

func (r *memSubscriptionRepo) userOf(subscriptionID int64) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[subscriptionID]
	if !ok {
		return 0, false
	}
	return row.UserID, true
}

// --- videos ---

type memVideoRepo struct {
	mu     sync.Mutex
	rows   map[int64]*models.Video
	subs   *memSubscriptionRepo
	nextID int64
}

func (r *memVideoRepo) Create(_ context.Context, video *models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.SubscriptionID == video.SubscriptionID && row.VideoID == video.VideoID {
			return db.ErrDuplicateKey
		}
	}
	r.nextID++
	video.ID = r.nextID
	cp := *video
	r.rows[video.ID] = &cp
	return nil
}

func (r *memVideoRepo) GetByID(_ context.Context, id int64) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *memVideoRepo) ListBySubscription(_ context.Context, subscriptionID int64) ([]*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Video
	for _, row := range r.rows {
		if row.SubscriptionID == subscriptionID {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlaylistIndex != out[j].PlaylistIndex {
			return out[i].PlaylistIndex < out[j].PlaylistIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memVideoRepo) SetWatched(_ context.Context, id int64, watched bool) error {
	return r.update(id, func(v *models.Video) { v.Watched = watched })
}

func (r *memVideoRepo) MarkDownloadRequested(_ context.Context, id int64, at time.Time) error {
	return r.update(id, func(v *models.Video) { v.DownloadRequestedAt = &at })
}

func (r *memVideoRepo) SetDownloadedPath(_ context.Context, id int64, path string) error {
	return r.update(id, func(v *models.Video) { v.DownloadedPath = &path })
}

func (r *memVideoRepo) ClearDownload(_ context.Context, id int64) error {
	return r.update(id, func(v *models.Video) {
		v.DownloadedPath = nil
		v.DownloadRequestedAt = nil
	})
}

func (r *memVideoRepo) CountDownloadedBySubscription(_ context.Context, subscriptionID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.SubscriptionID == subscriptionID && row.DownloadedPath != nil {
			n++
		}
	}
	return n, nil
}

func (r *memVideoRepo) CountDownloadedByUser(_ context.Context, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.DownloadedPath == nil {
			continue
		}
		if owner, ok := r.subs.userOf(row.SubscriptionID); ok && owner == userID {
			n++
		}
	}
	return n, nil
}

func (r *memVideoRepo) update(id int64, apply func(*models.Video)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return db.ErrNotFound
	}
	apply(row)
	return nil
}

// --- user settings ---

type memSettingsRepo struct {
	mu     sync.Mutex
	rows   map[int64]*models.UserSettings
	nextID int64
}

func (r *memSettingsRepo) GetByUserID(_ context.Context, userID int64) (*models.UserSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *memSettingsRepo) GetOrCreate(_ context.Context, userID int64) (*models.UserSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[userID]; ok {
		cp := *row
		return &cp, nil
	}
	r.nextID++
	settings := models.NewUserSettings(userID)
	settings.ID = r.nextID
	cp := *settings
	r.rows[userID] = &cp
	return settings, nil
}

func (r *memSettingsRepo) Update(_ context.Context, settings *models.UserSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[settings.UserID]; !ok {
		return db.ErrNotFound
	}
	cp := *settings
	r.rows[settings.UserID] = &cp
	return nil
}

func (r *memSettingsRepo) put(settings *models.UserSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *settings
	r.rows[settings.UserID] = &cp
}

func samePtr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// --- video source ---

type fakeSource struct {
	mu sync.Mutex

	playlists   map[string][]PlaylistItem
	playlistErr error

	playlistInfos      map[string]*PlaylistInfo
	channelsByID       map[string]*ChannelInfo
	channelsByUsername map[string]*ChannelInfo
	customURLs         map[string]string

	resolveCalls int

	// When set, GetPlaylist announces itself on started and waits for
	// release before returning. Used to hold a sync pass open.
	started chan struct{}
	release chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		playlists:          make(map[string][]PlaylistItem),
		playlistInfos:      make(map[string]*PlaylistInfo),
		channelsByID:       make(map[string]*ChannelInfo),
		channelsByUsername: make(map[string]*ChannelInfo),
		customURLs:         make(map[string]string),
	}
}

func (f *fakeSource) GetPlaylist(_ context.Context, playlistID string) ([]PlaylistItem, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playlistErr != nil {
		return nil, f.playlistErr
	}
	items, ok := f.playlists[playlistID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]PlaylistItem(nil), items...), nil
}

func (f *fakeSource) ResolveChannelByID(_ context.Context, channelID string) (*ChannelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	info, ok := f.channelsByID[channelID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *info
	return &cp, nil
}

func (f *fakeSource) ResolveChannelByUsername(_ context.Context, username string) (*ChannelInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	info, ok := f.channelsByUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *info
	return &cp, nil
}

func (f *fakeSource) SearchChannelByCustomURL(_ context.Context, customURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	id, ok := f.customURLs[customURL]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (f *fakeSource) ResolvePlaylist(_ context.Context, playlistID string) (*PlaylistInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	info, ok := f.playlistInfos[playlistID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *info
	return &cp, nil
}

// --- job scheduler ---

type fakeScheduler struct {
	mu        sync.Mutex
	downloads []int64
	deletes   []int64
	resyncs   []int64
	err       error
}

func (f *fakeScheduler) ScheduleDownload(_ context.Context, video *models.Video) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.downloads = append(f.downloads, video.ID)
	return nil
}

func (f *fakeScheduler) ScheduleDelete(_ context.Context, video *models.Video) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deletes = append(f.deletes, video.ID)
	return nil
}

func (f *fakeScheduler) ScheduleResync(_ context.Context, subscriptionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.resyncs = append(f.resyncs, subscriptionID)
	return nil
}

func (f *fakeScheduler) scheduledDownloads() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.downloads...)
}

// --- event publisher ---

type fakePublisher struct {
	mu     sync.Mutex
	events []*SyncEvent
	err    error
}

func (f *fakePublisher) PublishSyncEvent(_ context.Context, event *SyncEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *event
	f.events = append(f.events, &cp)
	return nil
}
