package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/lmartel/cadenza/internal/audio"
	"github.com/lmartel/cadenza/internal/catalog"
	"github.com/lmartel/cadenza/internal/collection"
	"github.com/lmartel/cadenza/internal/config"
	"github.com/lmartel/cadenza/internal/errmsg"
	"github.com/lmartel/cadenza/internal/identity"
	"github.com/lmartel/cadenza/internal/library"
	"github.com/lmartel/cadenza/internal/logger"
	"github.com/lmartel/cadenza/internal/queue"
	"github.com/lmartel/cadenza/internal/remote"
	"github.com/lmartel/cadenza/internal/session"
	"github.com/lmartel/cadenza/internal/state"
)

type app struct {
	cfg      *config.Config
	log      *zap.Logger
	stateMgr *state.Manager

	catalog    *catalog.Client
	remote     *remote.Client
	ids        *identity.Manager
	engine     *library.Engine
	controller *session.Controller

	// lastSearch is the current browse context; play/queue indices refer
	// to it. Guarded by searchMu: the controller's event goroutine reads
	// it through the browse provider while the command loop replaces it.
	searchMu   sync.Mutex
	lastSearch []catalog.Track

	feedCancel context.CancelFunc
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck // best-effort flush on exit

	stateMgr, err := state.Open()
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer stateMgr.Close()

	out, err := audio.NewSpeaker()
	if err != nil {
		return fmt.Errorf("init audio: %w", err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		stateMgr: stateMgr,
		catalog:  catalog.NewClient(cfg.Catalog.URL),
		remote:   remote.NewClient(cfg.Remote.URL),
		ids:      identity.NewManager(),
	}
	a.engine = library.NewEngine(a.remote, a.ids, log)
	a.controller = session.New(out, queue.NewManager())
	defer a.controller.Close()

	a.controller.SetLikedResolver(a.engine.IsLiked)
	a.controller.SetBrowseContext(a.searchResults)
	a.controller.SetLibraryContext(a.libraryTracks)

	a.restore()
	go a.persistLoop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Println("cadenza — type 'help' for commands")
	for {
		fmt.Print("> ")
		select {
		case <-sigCh:
			fmt.Println()
			a.shutdown()
			return nil
		case line, ok := <-lines:
			if !ok {
				a.shutdown()
				return nil
			}
			if !a.dispatch(strings.TrimSpace(line)) {
				a.shutdown()
				return nil
			}
		}
	}
}

// restore brings back the persisted session: volume, shuffle, sign-in,
// history.
func (a *app) restore() {
	if ps, err := a.stateMgr.GetPlayer(); err == nil {
		a.controller.SetVolume(ps.Volume)
		a.controller.SetShuffle(ps.Shuffle)
		if ps.AuthToken != "" {
			if s, err := identity.FromToken(ps.AuthToken); err == nil && s.Valid() {
				a.signIn(s)
			}
		}
	}
	if entries, err := a.stateMgr.GetHistory(); err == nil {
		a.controller.RestoreHistory(entries)
	}
}

// persistLoop mirrors state and history changes into the store. The
// store debounces, so chatty events are cheap.
func (a *app) persistLoop() {
	sub := a.controller.Subscribe()
	for {
		select {
		case <-sub.Done:
			return
		case <-sub.StateChanged:
			a.savePlayer()
		case <-sub.TrackChanged:
			_ = a.stateMgr.SaveHistory(a.controller.RecentlyPlayed())
		case e := <-sub.Error:
			a.log.Warn("playback degraded", zap.String("op", e.Op), zap.Error(e.Err))
			fmt.Println("\nPlayback failed; paused.")
		case <-sub.ProgressChanged:
		}
	}
}

func (a *app) savePlayer() {
	st := a.controller.Status()
	token := ""
	if s, ok := a.ids.Current(); ok {
		token = s.Token
	}
	a.stateMgr.SavePlayer(state.PlayerState{
		Volume:    st.Volume,
		Shuffle:   st.Shuffle,
		AuthToken: token,
	})
}

func (a *app) shutdown() {
	if a.feedCancel != nil {
		a.feedCancel()
	}
	a.savePlayer()
	_ = a.stateMgr.SaveHistory(a.controller.RecentlyPlayed())
	a.engine.Wait()
}

// signIn installs the session and starts remote sync.
func (a *app) signIn(s identity.Session) {
	a.ids.Set(s)
	a.remote.SetToken(s.Token)

	ctx, cancel := context.WithCancel(context.Background())
	a.feedCancel = cancel

	go func() {
		if err := a.engine.LoadRemote(ctx); err != nil {
			a.log.Warn("remote load failed", zap.Error(err))
			return
		}
		if err := a.engine.SeedSystemCollections(ctx, a.catalog); err != nil {
			a.log.Warn("seeding failed", zap.Error(err))
		}

		events, err := a.remote.Subscribe(ctx, s.UserID)
		if err != nil {
			a.log.Warn("event feed unavailable", zap.Error(err))
			return
		}
		for e := range events {
			a.engine.ApplyRemoteEvent(e)
		}
	}()
}

func (a *app) setSearchResults(tracks []catalog.Track) {
	a.searchMu.Lock()
	defer a.searchMu.Unlock()
	a.lastSearch = tracks
}

func (a *app) searchResults() []catalog.Track {
	a.searchMu.Lock()
	defer a.searchMu.Unlock()
	return a.lastSearch
}

// libraryTracks is the full-catalog fallback context: everything the
// session knows about locally.
func (a *app) libraryTracks() []catalog.Track {
	seen := map[string]struct{}{}
	var out []catalog.Track
	add := func(tracks []catalog.Track) {
		for _, t := range tracks {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			out = append(out, t)
		}
	}
	add(a.engine.Liked())
	for _, col := range a.engine.Collections() {
		add(col.Tracks)
	}
	return out
}

// dispatch runs one command line; it returns false to quit.
func (a *app) dispatch(line string) bool {
	if line == "" {
		return true
	}
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "quit", "exit":
		return false
	case "help":
		printHelp()
	case "search":
		a.cmdSearch(strings.Join(args, " "))
	case "play":
		a.cmdPlay(args)
	case "pause", "resume", "toggle":
		a.controller.TogglePlayPause()
		a.cmdStatus()
	case "next":
		a.controller.Next()
		a.cmdStatus()
	case "prev":
		a.controller.Prev()
		a.cmdStatus()
	case "seek":
		a.cmdSeek(args)
	case "volume":
		a.cmdVolume(args)
	case "shuffle":
		a.controller.ToggleShuffle()
		fmt.Printf("Shuffle: %v\n", a.controller.Status().Shuffle)
	case "queue":
		a.cmdQueue(args)
	case "status", "now":
		a.cmdStatus()
	case "like":
		a.cmdLike()
	case "liked":
		a.printTracks(a.engine.Liked())
	case "recent":
		a.cmdRecent()
	case "suggest":
		a.printTracks(catalog.Suggestions(
			rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)), a.libraryTracks()))
	case "playlists":
		a.cmdPlaylists()
	case "playlist":
		a.cmdPlaylist(args)
	case "create":
		a.cmdCreate(args)
	case "addto":
		a.cmdAddTo(args)
	case "rmfrom":
		a.cmdRmFrom(args)
	case "delete":
		a.cmdDelete(args)
	case "rename":
		a.cmdRename(args)
	case "login":
		a.cmdLogin(args)
	case "logout":
		a.cmdLogout()
	case "profile":
		a.cmdProfile(args)
	default:
		fmt.Printf("Unknown command %q; try 'help'\n", cmd)
	}
	return true
}

func (a *app) cmdSearch(query string) {
	if query == "" {
		fmt.Println("Usage: search <query>")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	results, err := a.catalog.Search(ctx, query, a.cfg.Catalog.SearchLimit)
	if err != nil {
		fmt.Println(errmsg.Format(errmsg.OpSearch, err))
		return
	}
	a.setSearchResults(results)
	a.printTracks(results)

	if len(results) > 0 {
		if recs, err := a.catalog.Recommendations(ctx, results[0]); err == nil && len(recs) > 0 {
			fmt.Printf("\nMore from %s:\n", results[0].MainArtist())
			a.printTracks(recs)
		}
	}
}

func (a *app) cmdPlay(args []string) {
	t, ok := a.pickSearchResult(args, "play")
	if !ok {
		return
	}
	a.controller.PlayTrack(t, a.searchResults())
	a.cmdStatus()
}

func (a *app) cmdQueue(args []string) {
	if len(args) == 0 {
		a.printTracks(a.controller.ManualQueue())
		return
	}
	t, ok := a.pickSearchResult(args, "queue")
	if !ok {
		return
	}
	a.controller.Enqueue(t)
	fmt.Printf("Queued: %s — %s\n", t.Title, t.Artist)
}

func (a *app) pickSearchResult(args []string, verb string) (catalog.Track, bool) {
	if len(args) != 1 {
		fmt.Printf("Usage: %s <result #>\n", verb)
		return catalog.Track{}, false
	}
	results := a.searchResults()
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(results) {
		fmt.Printf("No search result #%s; search first\n", args[0])
		return catalog.Track{}, false
	}
	return results[n-1], true
}

func (a *app) cmdSeek(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: seek <seconds>")
		return
	}
	secs, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("Usage: seek <seconds>")
		return
	}
	a.controller.Seek(time.Duration(secs) * time.Second)
}

func (a *app) cmdVolume(args []string) {
	if len(args) != 1 {
		fmt.Printf("Volume: %.0f%%\n", a.controller.Status().Volume*100)
		return
	}
	pct, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("Usage: volume <0-100>")
		return
	}
	a.controller.SetVolume(float64(pct) / 100)
	a.savePlayer()
}

func (a *app) cmdStatus() {
	st := a.controller.Status()
	if st.Current == nil {
		fmt.Println("Nothing playing")
		return
	}
	mode := "paused"
	if st.Playing {
		mode = "playing"
	}
	liked := ""
	if st.Liked {
		liked = " ♥"
	}
	fmt.Printf("[%s] %s — %s%s  %s / %s\n",
		mode, st.Current.Title, st.Current.Artist, liked,
		formatDuration(st.Elapsed), formatDuration(st.Duration))
}

func (a *app) cmdLike() {
	st := a.controller.Status()
	if st.Current == nil {
		fmt.Println("Nothing playing")
		return
	}
	if err := a.engine.ToggleLike(*st.Current); err != nil {
		fmt.Println(errmsg.Format(errmsg.OpLikeToggle, err))
		return
	}
	if a.engine.IsLiked(st.Current.ID) {
		fmt.Println("Liked")
	} else {
		fmt.Println("Unliked")
	}
}

func (a *app) cmdRecent() {
	entries := a.controller.RecentlyPlayed()
	if len(entries) == 0 {
		fmt.Println("No recently played tracks")
		return
	}
	for i, e := range entries {
		fmt.Printf("%2d. %s — %s (%s)\n", i+1, e.Track.Title, e.Track.Artist,
			humanize.Time(e.PlayedAt))
	}
}

func (a *app) cmdPlaylists() {
	cols := a.engine.Collections()
	if len(cols) == 0 {
		fmt.Println("No playlists")
		return
	}
	for i, c := range cols {
		tag := ""
		if c.IsSystem {
			tag = " [curated]"
		}
		fmt.Printf("%2d. %s — %s%s\n", i+1, c.Name, c.Description, tag)
	}
}

func (a *app) cmdPlaylist(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: playlist <#> [shuffle]")
		return
	}
	col, ok := a.pickCollection(args[0])
	if !ok {
		return
	}
	shuffle := len(args) > 1 && args[1] == "shuffle"
	a.controller.PlayCollection(col, shuffle)
	a.cmdStatus()
}

func (a *app) pickCollection(arg string) (*collection.Collection, bool) {
	cols := a.engine.Collections()
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(cols) {
		fmt.Printf("No playlist #%s; see 'playlists'\n", arg)
		return nil, false
	}
	return cols[n-1], true
}

func (a *app) cmdCreate(args []string) {
	name := strings.Join(args, " ")
	col, err := a.engine.CreateCollection(name, nil)
	if err != nil {
		fmt.Println(errmsg.FormatWith(errmsg.OpPlaylistCreate, name, err))
		return
	}
	fmt.Printf("Created %q\n", col.Name)
}

func (a *app) cmdAddTo(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: addto <playlist #> (adds the current track)")
		return
	}
	st := a.controller.Status()
	if st.Current == nil {
		fmt.Println("Nothing playing")
		return
	}
	col, ok := a.pickCollection(args[0])
	if !ok {
		return
	}
	if err := a.engine.AddToCollection(col.ID, *st.Current); err != nil {
		fmt.Println(errmsg.FormatWith(errmsg.OpPlaylistAddTrack, col.Name, err))
		return
	}
	fmt.Printf("Added to %q\n", col.Name)
}

func (a *app) cmdRmFrom(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: rmfrom <playlist #> (removes the current track)")
		return
	}
	st := a.controller.Status()
	if st.Current == nil {
		fmt.Println("Nothing playing")
		return
	}
	col, ok := a.pickCollection(args[0])
	if !ok {
		return
	}
	if err := a.engine.RemoveFromCollection(col.ID, st.Current.ID); err != nil {
		fmt.Println(errmsg.FormatWith(errmsg.OpPlaylistRemove, col.Name, err))
		return
	}
	fmt.Printf("Removed from %q\n", col.Name)
}

func (a *app) cmdDelete(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: delete <playlist #>")
		return
	}
	col, ok := a.pickCollection(args[0])
	if !ok {
		return
	}
	if err := a.engine.DeleteCollection(col.ID); err != nil {
		fmt.Println(errmsg.FormatWith(errmsg.OpPlaylistDelete, col.Name, err))
		return
	}
	fmt.Printf("Deleted %q\n", col.Name)
}

func (a *app) cmdRename(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: rename <playlist #> <new name>")
		return
	}
	col, ok := a.pickCollection(args[0])
	if !ok {
		return
	}
	name := strings.Join(args[1:], " ")
	if err := a.engine.RenameCollection(col.ID, name); err != nil {
		fmt.Println(errmsg.FormatWith(errmsg.OpPlaylistRename, col.Name, err))
		return
	}
	fmt.Printf("Renamed to %q\n", name)
}

func (a *app) cmdLogin(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: login <email> <password>")
		return
	}
	if !a.cfg.HasRemote() {
		fmt.Println("No sync backend configured; set remote.url in config.toml")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	token, err := a.remote.Login(ctx, args[0], args[1])
	if err != nil {
		fmt.Println(errmsg.Format(errmsg.OpLogin, err))
		return
	}
	s, err := identity.FromToken(token)
	if err != nil {
		fmt.Println(errmsg.Format(errmsg.OpLogin, err))
		return
	}
	a.signIn(s)
	a.savePlayer()
	fmt.Printf("Signed in as %s\n", displayName(s))
}

func (a *app) cmdLogout() {
	if a.feedCancel != nil {
		a.feedCancel()
		a.feedCancel = nil
	}
	a.ids.Clear()
	a.remote.SetToken("")
	a.engine.Reset()
	a.savePlayer()
	fmt.Println("Signed out")
}

func (a *app) cmdProfile(args []string) {
	if len(args) == 0 {
		if s, ok := a.ids.Current(); ok {
			fmt.Printf("Signed in as %s <%s>\n", displayName(s), s.Email)
		} else {
			fmt.Println("Not signed in")
		}
		return
	}
	name := strings.Join(args, " ")
	if err := a.engine.UpdateProfile(remote.Profile{DisplayName: name}); err != nil {
		fmt.Println(errmsg.Format(errmsg.OpProfileUpdate, err))
		return
	}
	fmt.Printf("Display name set to %q\n", name)
}

func (a *app) printTracks(tracks []catalog.Track) {
	if len(tracks) == 0 {
		fmt.Println("(empty)")
		return
	}
	for i, t := range tracks {
		fmt.Printf("%2d. %s — %s  [%s]\n", i+1, t.Title, t.Artist,
			formatDuration(time.Duration(t.DurationSeconds)*time.Second))
	}
}

func displayName(s identity.Session) string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Email
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

func printHelp() {
	fmt.Print(`Commands:
  search <query>         search the catalog (sets the browse context)
  play <#>               play a search result
  queue [#]              show the up-next queue, or queue a search result
  pause | next | prev    transport controls
  seek <seconds>         jump within the current track
  volume [0-100]         show or set volume
  shuffle                toggle shuffle
  status                 what's playing
  like | liked           toggle like on the current track / list liked
  recent                 recently played
  suggest                a random sample from your library
  playlists              list playlists
  playlist <#> [shuffle] play a playlist
  create <name>          new playlist
  addto <#> | rmfrom <#> add/remove the current track
  rename <#> <name>      rename a playlist
  delete <#>             delete a playlist
  login <email> <pw>     sign in to the sync backend
  logout | profile [name]
  quit
`)
}
