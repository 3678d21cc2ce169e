// Command builderctl drives the builder store from the terminal against a
// running architect backend.
//
// Usage:
//
//	ARCHITECT_URL=http://localhost:8080 builderctl <command> [args]
//
// Commands:
//
//	library [query]        print the (filtered) component library
//	extract <file>         extract a component from a file and add it
//	remove <componentId>   remove a library entry
//	place <componentId>    place a library entry on the canvas
//	canvas                 print the canvas composition
//	clear                  clear the canvas
//	save <name>            save the canvas as a template
//	templates              print saved templates
//	theme <color> <radius> <font>   update the theme
//	sync                   push local state to the backend
//	hydrate                pull remote state into the local store
//	sessions               list sessions on the backend
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/architect-studio/internal/builder"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: builderctl <command> [args]")
		os.Exit(2)
	}

	baseURL := envOr("ARCHITECT_URL", "http://localhost:8080")
	statePath := envOr("ARCHITECT_STATE_FILE", defaultStatePath())

	client := builder.NewStateClient(baseURL)
	if os.Getenv("ARCHITECT_DEMO_LOGIN") != "" {
		if _, err := client.DemoLogin(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("demo login failed")
		}
	}

	opts := []builder.Option{
		builder.WithCloudSync(client),
		builder.WithPersister(builder.NewFilePersister(statePath)),
		builder.WithLogger(logger),
	}
	if seedPath := os.Getenv("ARCHITECT_SEED_FILE"); seedPath != "" {
		seed, err := builder.LoadSeedFile(seedPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load seed file")
		}
		opts = append(opts, builder.WithSeed(seed))
	}
	store := builder.NewStore(opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]
	if err := run(ctx, cmd, args, store, client); err != nil {
		logger.Fatal().Err(err).Str("command", cmd).Msg("command failed")
	}

	// Mutating commands sync in the background; don't exit under them.
	store.Flush()
}

func run(ctx context.Context, cmd string, args []string, store *builder.Store, client *builder.StateClient) error {
	switch cmd {
	case "library":
		if len(args) > 0 {
			store.SetSearchQuery(args[0])
		}
		for _, c := range store.FilteredComponents() {
			fmt.Printf("%-36s  %-20s  %-10s  complexity=%d  %v\n",
				c.ID, c.Name, c.Category, c.DisplayComplexity(), c.Tags)
		}
		return nil

	case "extract":
		if len(args) != 1 {
			return fmt.Errorf("usage: builderctl extract <file>")
		}
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		sessionID, _, err := client.CreateSession(ctx, "", string(content))
		if err != nil {
			return err
		}
		desc, err := client.Extract(ctx, sessionID, string(content))
		if err != nil {
			return err
		}
		primitive := desc.Primitive(uuid.NewString())
		store.AddComponent(primitive)
		fmt.Printf("extracted %q (%s) tags=%v\n", desc.Name, desc.Category, desc.Tags)
		return nil

	case "remove":
		if len(args) != 1 {
			return fmt.Errorf("usage: builderctl remove <componentId>")
		}
		store.RemoveComponent(args[0])
		return nil

	case "place":
		if len(args) != 1 {
			return fmt.Errorf("usage: builderctl place <componentId>")
		}
		for _, c := range store.Snapshot().Components {
			if c.ID == args[0] {
				item := store.AddToCanvas(c)
				fmt.Printf("placed %q as instance %s\n", item.DisplayName(), item.InstanceID)
				return nil
			}
		}
		return fmt.Errorf("no component with id %s", args[0])

	case "canvas":
		for i, item := range store.Snapshot().CanvasItems {
			fmt.Printf("%2d. %-36s  %s\n", i+1, item.InstanceID, item.DisplayName())
		}
		return nil

	case "clear":
		store.ClearCanvas()
		return nil

	case "save":
		if len(args) != 1 {
			return fmt.Errorf("usage: builderctl save <name>")
		}
		tpl := store.SaveTemplate(args[0])
		fmt.Printf("saved template %q (%d items)\n", tpl.Name, len(tpl.Items))
		return nil

	case "templates":
		for _, t := range store.Snapshot().Templates {
			fmt.Printf("%-36s  %-20s  %d items  saved %s\n",
				t.ID, t.Name, len(t.Items), time.UnixMilli(t.SavedAt).Format(time.RFC3339))
		}
		return nil

	case "theme":
		if len(args) != 3 {
			return fmt.Errorf("usage: builderctl theme <color> <radius> <font>")
		}
		radius, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("radius must be a number: %w", err)
		}
		store.UpdateTheme(builder.ThemeUpdate{
			PrimaryColor: &args[0],
			BorderRadius: &radius,
			FontFamily:   &args[2],
		})
		return nil

	case "sync":
		store.SyncToCloud(ctx)
		return nil

	case "hydrate":
		store.HydrateFromCloud(ctx)
		return nil

	case "sessions":
		sessions, err := client.ListSessions(ctx)
		if err != nil {
			return err
		}
		for _, s := range sessions {
			fmt.Printf("%-36s  %-40s  last active %s\n",
				s.ID, s.Title, time.UnixMilli(s.LastActive).Format(time.RFC3339))
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".architect-state.json"
	}
	return home + "/.architect/state.json"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
