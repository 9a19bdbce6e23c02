package linkdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/ronny/linkdb/debug"
	"github.com/ronny/linkdb/ids"
	"github.com/ronny/linkdb/models"
	"github.com/ronny/linkdb/storage"
	"github.com/ronny/linkdb/tracking"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultDatabase is the database used when neither WithDefaultDatabase
	// nor CreateOptions.Database name one. It's relative to the working
	// directory and must exist; the repository ships an empty one.
	DefaultDatabase = "data/links.json"

	DefaultCacheSize           = 1000
	DefaultMaxShortURLAttempts = 3
	DefaultTrackingTimeout     = 2 * time.Second
)

// LinkDB creates and looks up links in link databases held by a
// storage.Storage.
//
// Creates against the same database are serialised within one LinkDB. Nothing
// coordinates separate processes (or separate LinkDBs) writing the same
// database: each create is a full load-modify-save cycle and concurrent
// writers may lose each other's links.
type LinkDB struct {
	storage             storage.Storage
	defaultDatabase     string
	tracker             tracking.Tracker
	trackingTimeout     time.Duration
	cacheSize           int
	lruCache            *lru.Cache
	shortURLBase        string
	idgen               ids.Generator
	maxShortURLAttempts int
	locks               sync.Map // database name -> *sync.Mutex
}

// Create validates opts, loads the database, checks that neither opts.URI nor
// opts.ID is taken, inserts the new link and saves the database. Nothing is
// saved when any step fails.
func (l *LinkDB) Create(ctx context.Context, opts *CreateOptions) error {
	if err := l.validate(opts); err != nil {
		return err
	}
	return l.create(ctx, opts)
}

// CreateAsync is like Create but does the I/O in a goroutine. Invalid options
// are returned immediately, before any I/O. Otherwise the returned channel
// receives exactly one value, nil on success, and is then closed.
func (l *LinkDB) CreateAsync(ctx context.Context, opts *CreateOptions) (<-chan error, error) {
	if err := l.validate(opts); err != nil {
		return nil, err
	}

	o := *opts
	o.Keywords = append([]string(nil), opts.Keywords...)

	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- l.create(ctx, &o)
	}()
	return result, nil
}

// CreateWithCallback is like CreateAsync but calls done exactly once with the
// outcome. A nil done is rejected like invalid options, before any I/O.
func (l *LinkDB) CreateWithCallback(ctx context.Context, opts *CreateOptions, done func(error)) error {
	if err := l.validate(opts); err != nil {
		return err
	}
	if done == nil {
		debug.LinkCreations().WithLabelValues("invalid").Inc()
		return &ErrInvalidArgument{msg: "callback must not be nil"}
	}

	result, err := l.CreateAsync(ctx, opts)
	if err != nil {
		return err
	}
	go func() {
		done(<-result)
	}()
	return nil
}

func (l *LinkDB) validate(opts *CreateOptions) error {
	if err := opts.Validate(); err != nil {
		debug.LinkCreations().WithLabelValues("invalid").Inc()
		return err
	}
	return nil
}

func (l *LinkDB) create(ctx context.Context, opts *CreateOptions) (err error) {
	start := time.Now()
	database := l.Database(opts.Database)
	defer func() {
		debug.LinkCreateDurations().Observe(time.Since(start).Seconds())
		debug.LinkCreations().WithLabelValues(createResult(err)).Inc()
	}()

	unlock := l.lock(database)
	defer unlock()

	db, err := l.storage.Load(ctx, database)
	if err != nil {
		return fmt.Errorf("storage.Load: %w", err)
	}
	if db == nil {
		db = models.Database{}
	}

	if db.HasURI(opts.URI) {
		return &ErrLinkExists{Field: FieldURI, Value: opts.URI}
	}
	if _, existing := db.FindByID(opts.ID); existing != nil {
		return &ErrLinkExists{Field: FieldID, Value: opts.ID}
	}

	link := NewLink(opts)
	if link.ShortURL == "" && l.shortURLBase != "" {
		link.ShortURL, err = l.generateShortURL(db)
		if err != nil {
			return err
		}
	}
	db[opts.URI] = link

	err = l.storage.Save(ctx, database, db)
	if err != nil {
		return fmt.Errorf("storage.Save: %w", err)
	}

	log.Info().
		Str("database", database).
		Str("uri", opts.URI).
		Str("id", link.ID).
		Str("shortURL", link.ShortURL).
		Msg("link created")

	l.trackCreated(database, opts.URI, link)
	return nil
}

func createResult(err error) string {
	if err == nil {
		return "created"
	}
	var exists *ErrLinkExists
	if errors.As(err, &exists) {
		return "collision"
	}
	return "error"
}

func (l *LinkDB) generateShortURL(db models.Database) (string, error) {
	for attempt := 1; attempt <= l.maxShortURLAttempts; attempt++ {
		code, err := l.idgen.GenerateID()
		if err != nil {
			return "", fmt.Errorf("idgen.GenerateID: %w", err)
		}

		shortURL := l.shortURLBase + "/" + code
		if !db.HasShortURL(shortURL) {
			return shortURL, nil
		}
		log.Info().Int("attempt", attempt).Str("shortURL", shortURL).Msg("short URL collision, retrying...")
	}

	return "", &ErrShortURLAttemptsExhausted{attempts: l.maxShortURLAttempts}
}

func (l *LinkDB) trackCreated(database, uri string, link *models.Link) {
	if l.tracker == nil {
		return
	}

	ctx, cancelCtx := context.WithTimeout(context.Background(), l.trackingTimeout)
	defer cancelCtx()

	err := l.tracker.TrackLinkCreated(ctx, tracking.NewLinkCreatedPayload(database, uri, link.Clone()))
	if err != nil {
		log.Error().Err(err).Str("uri", uri).Msg("failed to track link creation")
	}
}

func (l *LinkDB) lock(database string) func() {
	value, _ := l.locks.LoadOrStore(database, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Database returns the database name used for name, i.e. name itself or the
// default database when name is empty.
func (l *LinkDB) Database(name string) string {
	if name == "" {
		return l.defaultDatabase
	}
	return name
}

// Get looks up the link stored under uri, returning it if found, or nil
// otherwise.
func (l *LinkDB) Get(ctx context.Context, database, uri string) (*models.Link, error) {
	if uri == "" {
		return nil, &ErrInvalidArgument{msg: "uri must not be empty"}
	}

	db, err := l.storage.Load(ctx, l.Database(database))
	if err != nil {
		return nil, fmt.Errorf("storage.Load: %w", err)
	}

	return db[uri], nil
}

// GetByID looks up the link with the given id, returning its URI and the link
// if found, or "" and nil otherwise.
func (l *LinkDB) GetByID(ctx context.Context, database, id string) (string, *models.Link, error) {
	if id == "" {
		return "", nil, &ErrInvalidArgument{msg: "id must not be empty"}
	}

	db, err := l.storage.Load(ctx, l.Database(database))
	if err != nil {
		return "", nil, fmt.Errorf("storage.Load: %w", err)
	}

	uri, link := db.FindByID(id)
	return uri, link, nil
}

type cachedLink struct {
	uri  string
	link *models.Link
}

// GetByIDWithCache is like GetByID but consults the LRU cache first and adds
// found links to it. Links aren't updated or deleted by LinkDB, so cached
// entries only go stale when the database is edited by something else.
func (l *LinkDB) GetByIDWithCache(ctx context.Context, database, id string) (string, *models.Link, error) {
	database = l.Database(database)
	key := database + "\x00" + id

	if l.lruCache != nil {
		if item, found := l.lruCache.Get(key); found {
			if cached, ok := item.(*cachedLink); ok {
				return cached.uri, cached.link.Clone(), nil
			}
			log.Warn().Msgf("found item in LRU cache but failed to assert as *cachedLink, ignoring: %+v", item)
		}
	}

	uri, link, err := l.GetByID(ctx, database, id)
	if err != nil {
		return "", nil, err
	}

	if l.lruCache != nil && link != nil {
		evicted := l.lruCache.Add(key, &cachedLink{uri: uri, link: link.Clone()})
		log.Debug().Bool("evicted", evicted).Msg("added link to LRU cache")
	}

	return uri, link, nil
}

func NewLinkDB(options ...func(*LinkDB)) (*LinkDB, error) {
	l := &LinkDB{
		defaultDatabase:     DefaultDatabase,
		cacheSize:           DefaultCacheSize,
		maxShortURLAttempts: DefaultMaxShortURLAttempts,
		trackingTimeout:     DefaultTrackingTimeout,
	}

	for _, option := range options {
		option(l)
	}

	if l.defaultDatabase == "" {
		return nil, errors.New("defaultDatabase must not be empty")
	}

	if l.maxShortURLAttempts < 1 {
		return nil, errors.New("maxShortURLAttempts must be at least 1")
	}

	if l.cacheSize > 0 {
		var err error
		l.lruCache, err = lru.New(l.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("lru.New: %w", err)
		}
	}

	if l.storage == nil {
		l.storage = storage.NewFileStorage()
	}

	if l.shortURLBase != "" && l.idgen == nil {
		var err error
		l.idgen, err = ids.NewNanoIDGenerator()
		if err != nil {
			return nil, fmt.Errorf("ids.NewNanoIDGenerator: %w", err)
		}
	}

	return l, nil
}

func WithStorage(storage storage.Storage) func(*LinkDB) {
	return func(l *LinkDB) {
		l.storage = storage
	}
}

func WithDefaultDatabase(database string) func(*LinkDB) {
	return func(l *LinkDB) {
		l.defaultDatabase = database
	}
}

func WithTracker(tracker tracking.Tracker) func(*LinkDB) {
	return func(l *LinkDB) {
		l.tracker = tracker
	}
}

func WithTrackingTimeout(timeout time.Duration) func(*LinkDB) {
	return func(l *LinkDB) {
		l.trackingTimeout = timeout
	}
}

// WithCacheSize sets the number of links kept by GetByIDWithCache. 0 disables
// the cache.
func WithCacheSize(size int) func(*LinkDB) {
	return func(l *LinkDB) {
		l.cacheSize = size
	}
}

// WithShortURLBase turns on short URL generation: links created without a
// short URL get `<base>/<generated code>`.
func WithShortURLBase(base string) func(*LinkDB) {
	return func(l *LinkDB) {
		l.shortURLBase = strings.TrimRight(base, "/")
	}
}

func WithIDGenerator(idgen ids.Generator) func(*LinkDB) {
	return func(l *LinkDB) {
		l.idgen = idgen
	}
}

func WithMaxShortURLAttempts(maxShortURLAttempts int) func(*LinkDB) {
	return func(l *LinkDB) {
		l.maxShortURLAttempts = maxShortURLAttempts
	}
}
