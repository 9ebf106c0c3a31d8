package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/itinerary-planner/internal/domain"
	"github.com/pkordes/itinerary-planner/internal/itinerary"
)

const dateLayout = "2006-01-02"

var errLocked = errors.New("the active trip is locked; run \"planner lock\" to unlock it")

// usageError marks argument mistakes, which print the command usage.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, a ...any) error {
	return usageError{msg: fmt.Sprintf(format, a...)}
}

// env is what a command runs against.
type env struct {
	*session
	out io.Writer
	ctx context.Context
}

type command struct {
	name string
	args string
	help string
	// edits marks commands that the trip lock forbids.
	edits bool
	run   func(e *env, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{name: "trips", help: "list trips, the active one marked with *", run: cmdTrips},
		{name: "show", help: "show the active trip day by day", run: cmdShow},
		{name: "create-trip", help: "create a trip and make it active", run: cmdCreateTrip},
		{name: "switch", args: "<trip-id>", help: "make a trip active", run: cmdSwitch},
		{name: "delete-trip", args: "<trip-id>", help: "delete a trip", run: cmdDeleteTrip},
		{name: "lock", args: "[trip-id]", help: "toggle the lock of a trip (default: active)", run: cmdLock},
		{name: "rename", args: "[-dest destination] <name>", help: "rename the active trip", edits: true, run: cmdRename},
		{name: "dates", args: "<start> <end>", help: "set the date range (YYYY-MM-DD)", edits: true, run: cmdDates},
		{name: "flight", args: "outbound|inbound [-no n] [-dep t] [-arr t] [-from a] [-to a]", help: "edit a flight", edits: true, run: cmdFlight},
		{name: "add-day", help: "append a day", edits: true, run: cmdAddDay},
		{name: "delete-day", args: "<n>", help: "delete day n", edits: true, run: cmdDeleteDay},
		{name: "move-day", args: "<from> <to>", help: "move a day", edits: true, run: cmdMoveDay},
		{name: "day", args: "<n>", help: "select day n", run: cmdDay},
		{name: "day-location", args: "[-clear] [-name s] [-lat f -lng f]", help: "override the current day's region", edits: true, run: cmdDayLocation},
		{name: "add-spot", args: "[-lat f -lng f] [-address s] [-note s] [-website s] [-rating f] <name>", help: "add a spot to the current day", edits: true, run: cmdAddSpot},
		{name: "add-empty-spot", help: "add a placeholder spot to the current day", edits: true, run: cmdAddEmptySpot},
		{name: "edit-spot", args: "<spot-id> [-name s] [-category s] [-start hh:mm] [-end hh:mm] [-note s] [-address s] [-lat f -lng f]", help: "edit a spot", edits: true, run: cmdEditSpot},
		{name: "remove-spot", args: "<spot-id>", help: "remove a spot", edits: true, run: cmdRemoveSpot},
		{name: "move-spot", args: "<spot-id> <over-spot-id>", help: "move a spot to another spot's position", edits: true, run: cmdMoveSpot},
		{name: "categories", help: "list categories", run: cmdCategories},
		{name: "add-category", args: "<label>", help: "add a category", run: cmdAddCategory},
		{name: "remove-category", args: "<label>", help: "remove a category", run: cmdRemoveCategory},
		{name: "pull", help: "replace local trips with the remote copy, if any", run: cmdPull},
		{name: "push", help: "save all trips to the remote now", run: cmdPush},
		{name: "reset", help: "discard the local snapshot", run: cmdReset},
	}
	for i := range commands {
		c := &commands[i]
		if c.edits {
			c.run = requireUnlocked(c.run)
		}
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// requireUnlocked refuses to run fn against a locked trip. The store would
// ignore the edit anyway; this only turns the silent no-op into an error.
func requireUnlocked(fn func(*env, []string) error) func(*env, []string) error {
	return func(e *env, args []string) error {
		if t, ok := e.store.ActiveTrip(); ok && itinerary.IsLocked(t) {
			return errLocked
		}
		return fn(e, args)
	}
}

// ---- trips -----------------------------------------------------------------

func cmdTrips(e *env, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}
	st := e.store.Snapshot()
	for _, t := range st.Trips {
		mark := " "
		if t.ID == st.ActiveTripID {
			mark = "*"
		}
		fmt.Fprintf(e.out, "%s %s  %s  %s  %s  %d day(s)%s\n",
			mark, t.ID, orDash(t.Name), orDash(t.Destination), dateRange(t), len(t.Days), lockedSuffix(t))
	}
	return nil
}

func cmdShow(e *env, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}
	t, ok := e.store.ActiveTrip()
	if !ok {
		return errors.New("no active trip")
	}
	fmt.Fprintf(e.out, "%s (%s)%s\n", orDash(t.Name), t.ID, lockedSuffix(t))
	fmt.Fprintf(e.out, "destination: %s\n", orDash(t.Destination))
	fmt.Fprintf(e.out, "dates: %s\n", dateRange(t))
	writeFlight(e.out, "outbound", t.Outbound)
	writeFlight(e.out, "inbound", t.Inbound)

	for i, d := range t.Days {
		mark := " "
		if i == t.CurrentDayIndex {
			mark = ">"
		}
		date, _ := itinerary.DayDate(t.StartDate, i)
		fmt.Fprintf(e.out, "%s day %d  %s", mark, i+1, orDash(date))
		if d.HasCustomLocation() {
			fmt.Fprintf(e.out, "  [%s]", orDash(d.CustomLocation))
		}
		fmt.Fprintln(e.out)
		for _, sp := range d.Spots {
			fmt.Fprintf(e.out, "    %s  %-5s %-5s %s  (%s)", sp.ID, sp.StartTime, sp.EndTime, sp.Name, sp.Category)
			if sp.Location.IsPlaced() {
				fmt.Fprintf(e.out, "  %.5f,%.5f", sp.Location.Lat, sp.Location.Lng)
			}
			fmt.Fprintln(e.out)
		}
	}

	if day, ok := e.store.CurrentDay(); ok {
		c := itinerary.MapCenter(day.Spots, itinerary.DefaultMapCenter)
		fmt.Fprintf(e.out, "map center: %.5f,%.5f\n", c.Lat, c.Lng)
	}
	return nil
}

func cmdCreateTrip(e *env, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}
	id := e.store.CreateTrip()
	fmt.Fprintln(e.out, id)
	return nil
}

func cmdSwitch(e *env, args []string) error {
	if err := exactArgs(args, 1); err != nil {
		return err
	}
	if err := requireTrip(e, args[0]); err != nil {
		return err
	}
	e.store.SwitchTrip(args[0])
	return nil
}

func cmdDeleteTrip(e *env, args []string) error {
	if err := exactArgs(args, 1); err != nil {
		return err
	}
	if err := requireTrip(e, args[0]); err != nil {
		return err
	}
	if len(e.store.Trips()) == 1 {
		return errors.New("cannot delete the only trip")
	}
	e.store.DeleteTrip(args[0])
	return nil
}

func cmdLock(e *env, args []string) error {
	if len(args) > 1 {
		return usagef("expected at most 1 argument, got %d", len(args))
	}
	t, ok := e.store.ActiveTrip()
	if !ok {
		return errors.New("no active trip")
	}
	id := t.ID
	if len(args) == 1 {
		id = args[0]
		if err := requireTrip(e, id); err != nil {
			return err
		}
	}
	e.store.ToggleTripLock(id)
	for _, t := range e.store.Trips() {
		if t.ID == id {
			state := "unlocked"
			if t.IsLocked {
				state = "locked"
			}
			fmt.Fprintf(e.out, "%s %s\n", id, state)
		}
	}
	return nil
}

func cmdRename(e *env, args []string) error {
	fs := newFlagSet("rename")
	dest := fs.String("dest", "", "destination")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}
	if fs.NArg() > 1 {
		return usagef("expected at most 1 name, got %d", fs.NArg())
	}
	var p itinerary.TripInfoPatch
	if fs.NArg() == 1 {
		p.Name = itinerary.Ptr(fs.Arg(0))
	}
	if flagSet(fs, "dest") {
		p.Destination = dest
	}
	if p.Name == nil && p.Destination == nil {
		return usagef("nothing to change")
	}
	e.store.UpdateTripInfo(p)
	return nil
}

func cmdDates(e *env, args []string) error {
	if err := exactArgs(args, 2); err != nil {
		return err
	}
	var ds [2]time.Time
	for i, d := range args {
		t, err := time.Parse(dateLayout, d)
		if err != nil {
			return usagef("dates must be YYYY-MM-DD, got %q", d)
		}
		ds[i] = t
	}
	span := ds[1].Sub(ds[0])
	if span < 0 {
		span = -span
	}
	if days := int(span.Hours()/24) + 1; days > itinerary.MaxTripDays {
		return fmt.Errorf("%d days requested, a trip has at most %d", days, itinerary.MaxTripDays)
	}
	e.store.UpdateTripDates(args[0], args[1])
	return nil
}

func cmdFlight(e *env, args []string) error {
	if len(args) == 0 {
		return usagef("missing direction")
	}
	dir := domain.FlightDirection(args[0])
	if dir != domain.Outbound && dir != domain.Inbound {
		return usagef("direction must be outbound or inbound, got %q", args[0])
	}
	fs := newFlagSet("flight")
	no := fs.String("no", "", "flight number")
	dep := fs.String("dep", "", "departure time")
	arr := fs.String("arr", "", "arrival time")
	from := fs.String("from", "", "departure airport")
	to := fs.String("to", "", "arrival airport")
	if err := fs.Parse(args[1:]); err != nil {
		return usagef("%v", err)
	}
	var p itinerary.FlightPatch
	if flagSet(fs, "no") {
		p.FlightNo = no
	}
	if flagSet(fs, "dep") {
		p.DepTime = dep
	}
	if flagSet(fs, "arr") {
		p.ArrTime = arr
	}
	if flagSet(fs, "from") {
		p.DepAirport = from
	}
	if flagSet(fs, "to") {
		p.ArrAirport = to
	}
	e.store.UpdateFlight(dir, p)
	return nil
}

// ---- days ------------------------------------------------------------------

func cmdAddDay(e *env, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}
	t, _ := e.store.ActiveTrip()
	if len(t.Days) >= itinerary.MaxTripDays {
		return fmt.Errorf("a trip has at most %d days", itinerary.MaxTripDays)
	}
	e.store.AddDay()
	return nil
}

func cmdDeleteDay(e *env, args []string) error {
	if err := exactArgs(args, 1); err != nil {
		return err
	}
	i, err := dayIndex(e, args[0])
	if err != nil {
		return err
	}
	t, _ := e.store.ActiveTrip()
	if len(t.Days) == 1 {
		return errors.New("cannot delete the only day")
	}
	e.store.DeleteDay(i)
	return nil
}

func cmdMoveDay(e *env, args []string) error {
	if err := exactArgs(args, 2); err != nil {
		return err
	}
	from, err := dayIndex(e, args[0])
	if err != nil {
		return err
	}
	to, err := dayIndex(e, args[1])
	if err != nil {
		return err
	}
	e.store.ReorderDays(from, to)
	return nil
}

func cmdDay(e *env, args []string) error {
	if err := exactArgs(args, 1); err != nil {
		return err
	}
	i, err := dayIndex(e, args[0])
	if err != nil {
		return err
	}
	e.store.SetCurrentDayIndex(i)
	return nil
}

func cmdDayLocation(e *env, args []string) error {
	fs := newFlagSet("day-location")
	drop := fs.Bool("clear", false, "drop the override")
	name := fs.String("name", "", "region name")
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}
	if fs.NArg() != 0 {
		return usagef("unexpected argument %q", fs.Arg(0))
	}
	p := itinerary.DayInfoPatch{Clear: *drop}
	if flagSet(fs, "name") {
		p.CustomLocation = name
	}
	if flagSet(fs, "lat") {
		p.CustomLat = lat
	}
	if flagSet(fs, "lng") {
		p.CustomLng = lng
	}
	t, _ := e.store.ActiveTrip()
	e.store.UpdateDayInfo(t.CurrentDayIndex, p)
	return nil
}

// ---- spots -----------------------------------------------------------------

func cmdAddSpot(e *env, args []string) error {
	fs := newFlagSet("add-spot")
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	address := fs.String("address", "", "address")
	note := fs.String("note", "", "note")
	website := fs.String("website", "", "website")
	rating := fs.Float64("rating", 0, "rating")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}
	if fs.NArg() != 1 {
		return usagef("expected a spot name")
	}
	in := itinerary.SpotInput{
		Name:     fs.Arg(0),
		Website:  *website,
		Note:     *note,
		Location: domain.Location{Lat: *lat, Lng: *lng},
		Address:  *address,
	}
	if flagSet(fs, "rating") {
		in.Rating = rating
	}
	e.store.AddSpot(in)
	if day, ok := e.store.CurrentDay(); ok && len(day.Spots) > 0 {
		fmt.Fprintln(e.out, day.Spots[len(day.Spots)-1].ID)
	}
	return nil
}

func cmdAddEmptySpot(e *env, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}
	fmt.Fprintln(e.out, e.store.AddEmptySpot())
	return nil
}

func cmdEditSpot(e *env, args []string) error {
	if len(args) == 0 {
		return usagef("missing spot id")
	}
	id := args[0]
	if err := requireSpot(e, id); err != nil {
		return err
	}
	fs := newFlagSet("edit-spot")
	name := fs.String("name", "", "name")
	category := fs.String("category", "", "category")
	start := fs.String("start", "", "start time")
	end := fs.String("end", "", "end time")
	note := fs.String("note", "", "note")
	address := fs.String("address", "", "address")
	lat := fs.Float64("lat", 0, "latitude")
	lng := fs.Float64("lng", 0, "longitude")
	if err := fs.Parse(args[1:]); err != nil {
		return usagef("%v", err)
	}
	if flagSet(fs, "lat") != flagSet(fs, "lng") {
		return usagef("-lat and -lng must be given together")
	}
	if flagSet(fs, "category") && !slices.Contains(e.store.Categories(), *category) {
		return fmt.Errorf("unknown category %q; add it with add-category first", *category)
	}

	var p itinerary.SpotPatch
	for _, f := range []struct {
		name string
		val  *string
		dst  **string
	}{
		{"name", name, &p.Name},
		{"category", category, &p.Category},
		{"start", start, &p.StartTime},
		{"end", end, &p.EndTime},
		{"note", note, &p.Note},
		{"address", address, &p.Address},
	} {
		if flagSet(fs, f.name) {
			*f.dst = f.val
		}
	}
	if flagSet(fs, "lat") {
		p.Location = &domain.Location{Lat: *lat, Lng: *lng}
	}
	e.store.UpdateSpot(id, p)
	return nil
}

func cmdRemoveSpot(e *env, args []string) error {
	if err := exactArgs(args, 1); err != nil {
		return err
	}
	if err := requireSpot(e, args[0]); err != nil {
		return err
	}
	e.store.RemoveSpot(args[0])
	return nil
}

func cmdMoveSpot(e *env, args []string) error {
	if err := exactArgs(args, 2); err != nil {
		return err
	}
	for _, id := range args {
		if err := requireSpot(e, id); err != nil {
			return err
		}
	}
	e.store.ReorderSpots(args[0], args[1])
	return nil
}

// ---- categories ------------------------------------------------------------

func cmdCategories(e *env, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}
	for _, c := range e.store.Categories() {
		fmt.Fprintln(e.out, c)
	}
	return nil
}

func cmdAddCategory(e *env, args []string) error {
	if err := exactArgs(args, 1); err != nil {
		return err
	}
	e.store.AddCategory(args[0])
	return nil
}

func cmdRemoveCategory(e *env, args []string) error {
	if err := exactArgs(args, 1); err != nil {
		return err
	}
	e.store.RemoveCategory(args[0])
	return nil
}

// ---- sync ------------------------------------------------------------------

func cmdPull(e *env, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}
	if e.sync == nil {
		return errors.New("offline: set PLANNER_API_URL to pull")
	}
	e.sync.LoadOnStart(e.ctx)
	if _, ok := e.sync.LastSaved(); !ok {
		fmt.Fprintln(e.out, "nothing pulled; kept local trips")
		return nil
	}
	fmt.Fprintf(e.out, "pulled %d trip(s)\n", len(e.store.Trips()))
	return nil
}

func cmdPush(e *env, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}
	if e.sync == nil {
		return errors.New("offline: set PLANNER_API_URL to push")
	}
	e.sync.Save()
	if err := e.sync.Flush(e.ctx); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "pushed %d trip(s)\n", len(e.store.Trips()))
	return nil
}

func cmdReset(e *env, args []string) error {
	if err := exactArgs(args, 0); err != nil {
		return err
	}
	e.discard = true
	return nil
}

// ---- helpers ---------------------------------------------------------------

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// flagSet reports whether the named flag was given on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func exactArgs(args []string, n int) error {
	if len(args) != n {
		return usagef("expected %d argument(s), got %d", n, len(args))
	}
	return nil
}

// dayIndex converts a 1-based day number of the active trip to an index.
func dayIndex(e *env, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, usagef("day must be a number, got %q", s)
	}
	t, _ := e.store.ActiveTrip()
	if n < 1 || n > len(t.Days) {
		return 0, fmt.Errorf("day %d out of range 1..%d", n, len(t.Days))
	}
	return n - 1, nil
}

func requireTrip(e *env, id string) error {
	for _, t := range e.store.Trips() {
		if t.ID == id {
			return nil
		}
	}
	return fmt.Errorf("no trip %q", id)
}

func requireSpot(e *env, id string) error {
	day, _ := e.store.CurrentDay()
	for _, sp := range day.Spots {
		if sp.ID == id {
			return nil
		}
	}
	return fmt.Errorf("no spot %q on the current day", id)
}

func dateRange(t domain.Trip) string {
	end, ok := itinerary.EndDate(t)
	if !ok {
		return "-"
	}
	return t.StartDate + ".." + end
}

func writeFlight(w io.Writer, label string, f domain.FlightInfo) {
	if f == (domain.FlightInfo{}) {
		return
	}
	fmt.Fprintf(w, "%s: %s %s %s -> %s %s\n", label,
		orDash(f.FlightNo), orDash(f.DepAirport), orDash(f.DepTime), orDash(f.ArrAirport), orDash(f.ArrTime))
}

func lockedSuffix(t domain.Trip) string {
	if t.IsLocked {
		return "  [locked]"
	}
	return ""
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
