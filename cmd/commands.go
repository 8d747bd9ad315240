package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Dosada05/mob-esports/brackets"
	"github.com/Dosada05/mob-esports/models"
	"github.com/Dosada05/mob-esports/services"
	"github.com/Dosada05/mob-esports/storage"
	"github.com/Dosada05/mob-esports/utils"
)

func (cmds *commands) login() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "log in and keep the token for later commands",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true, EnvVars: []string{"MOB_EMAIL"}},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"MOB_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			user, err := cmds.app.session.Login(c.Context, c.String("email"), c.String("password"))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Logged in as %s (%s)\n", user.Username, user.Role())
			return nil
		},
	}
}

func (cmds *commands) logout() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "forget the stored token",
		Action: func(c *cli.Context) error {
			if err := cmds.app.session.Logout(c.Context); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "Logged out")
			return nil
		},
	}
}

func (cmds *commands) whoami() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the current user and role",
		Action: func(c *cli.Context) error {
			a := cmds.app
			a.restore(c.Context)
			s := a.session.Session()
			if !s.Authenticated() {
				fmt.Fprintln(c.App.Writer, "anonymous")
				return nil
			}
			u := s.User()
			fmt.Fprintf(c.App.Writer, "%s <%s>\nrole: %s\n", u.Username, u.Email, s.Role())
			if exp := s.ExpiresAt(); !exp.IsZero() {
				fmt.Fprintf(c.App.Writer, "expires: %s\n", exp.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func (cmds *commands) tournaments() *cli.Command {
	return &cli.Command{
		Name:  "tournaments",
		Usage: "browse tournaments",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list tournaments",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "upcoming, ongoing, completed or cancelled"},
					&cli.StringFlag{Name: "game"},
					&cli.IntFlag{Name: "limit", Value: 20},
					&cli.IntFlag{Name: "offset"},
				},
				Action: func(c *cli.Context) error {
					a := cmds.app
					a.restore(c.Context)

					filter := models.TournamentFilter{
						Game:   c.String("game"),
						Limit:  c.Int("limit"),
						Offset: c.Int("offset"),
					}
					if s := c.String("status"); s != "" {
						status := models.TournamentStatus(s)
						filter.Status = &status
					}

					list, err := a.client.Tournaments.List(c.Context, filter)
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tNAME\tGAME\tSTATUS\tSTARTS")
					for _, t := range list {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Game, t.Status, t.StartDate.Format("2006-01-02"))
					}
					return tw.Flush()
				},
			},
			{
				Name:      "show",
				Usage:     "show one tournament with its participants",
				ArgsUsage: "<tournament-id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, 0, "tournament-id")
					if err != nil {
						return err
					}
					a := cmds.app
					a.restore(c.Context)

					t, err := a.brackets.LoadTournament(c.Context, id)
					if err != nil {
						return err
					}
					w := c.App.Writer
					fmt.Fprintf(w, "%s (%s)\n", t.Name, t.Game)
					fmt.Fprintf(w, "status: %s, starts %s\n", t.Status, t.StartDate.Format(time.RFC1123))
					if d := utils.DerefString(t.Description); d != "" {
						fmt.Fprintln(w, d)
					}
					fmt.Fprintf(w, "participants (%d/%d):\n", len(t.Participants), t.MaxParticipants)
					for _, p := range t.Participants {
						fmt.Fprintf(w, "  - %s\n", p.Name)
					}
					return nil
				},
			},
		},
	}
}

func (cmds *commands) bracket() *cli.Command {
	return &cli.Command{
		Name:  "bracket",
		Usage: "view and edit brackets",
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "print the bracket round by round",
				ArgsUsage: "<tournament-id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, 0, "tournament-id")
					if err != nil {
						return err
					}
					a := cmds.app
					a.restore(c.Context)

					b, err := a.brackets.Load(c.Context, id)
					if err != nil {
						return err
					}
					printBracket(c.App.Writer, b)
					return nil
				},
			},
			{
				Name:      "preview",
				Usage:     "lay out a bracket locally from the current participants",
				ArgsUsage: "<tournament-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Value: "single_elimination", Usage: "single_elimination, round_robin or double_round_robin"},
				},
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, 0, "tournament-id")
					if err != nil {
						return err
					}
					a := cmds.app
					a.restore(c.Context)

					b, err := a.brackets.Preview(c.Context, id, c.String("format"))
					if err != nil {
						return err
					}
					printBracket(c.App.Writer, b)
					return nil
				},
			},
			{
				Name:      "score",
				Usage:     "record the final score of a match",
				ArgsUsage: "<tournament-id> <match-id> <score1> <score2>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 4 {
						return cli.Exit("usage: mob bracket score <tournament-id> <match-id> <score1> <score2>", 2)
					}
					a := cmds.app
					if err := cmds.requireOrganizer(c.Context); err != nil {
						return err
					}

					tournamentID, matchID := c.Args().Get(0), c.Args().Get(1)
					b, err := a.brackets.Load(c.Context, tournamentID)
					if err != nil {
						return err
					}

					editor := brackets.NewEditor(tournamentID, b, a.brackets)
					if err := editor.Select(matchID); err != nil {
						return err
					}
					if err := editor.Edit(); err != nil {
						return err
					}
					if err := editor.SetScores(c.Args().Get(2), c.Args().Get(3)); err != nil {
						return err
					}
					if err := editor.Save(c.Context); err != nil {
						return err
					}

					m, _ := editor.Selected()
					s1, s2 := editor.Scores()
					fmt.Fprintf(c.App.Writer, "%s: %s - %s, winner %s\n", m.ID, s1, s2, side(m.WinnerID))
					return nil
				},
			},
			{
				Name:      "generate",
				Usage:     "ask the API to generate the tournament bracket",
				ArgsUsage: "<tournament-id>",
				Action: func(c *cli.Context) error {
					id, err := requireArg(c, 0, "tournament-id")
					if err != nil {
						return err
					}
					if err := cmds.requireOrganizer(c.Context); err != nil {
						return err
					}
					b, err := cmds.app.brackets.Generate(c.Context, id)
					if err != nil {
						return err
					}
					printBracket(c.App.Writer, b)
					return nil
				},
			},
		},
	}
}

func (cmds *commands) requireOrganizer(ctx context.Context) error {
	s, err := cmds.app.requireLogin(ctx)
	if err != nil {
		return err
	}
	if !s.Role().CanManageTournaments() {
		return fmt.Errorf("%w: %s cannot edit brackets", services.ErrForbiddenOperation, s.Role())
	}
	return nil
}

func (cmds *commands) listen() *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "print chat messages and notifications as they arrive",
		Action: func(c *cli.Context) error {
			a := cmds.app
			manager := a.realtimeManager()
			defer manager.Release()

			inbox := services.NewInboxService(manager, a.logger, 0)
			manager.AddListener(inbox.Handle)

			w := c.App.Writer
			inbox.OnChat(func(e services.ChatEntry) {
				fmt.Fprintf(w, "[%s] %s: %s\n", e.At.Format("15:04"), e.Peer, e.Text)
			})
			inbox.OnNotification(func(n services.Notification) {
				fmt.Fprintf(w, "* %s: %s (%d unread)\n", n.Title, n.Text, inbox.Unread())
			})
			inbox.OnFriend(func(e services.FriendEvent) {
				fmt.Fprintf(w, "~ %s %s %s\n", e.Type, e.From, e.Status)
			})
			manager.AddListener(func(msg models.Message) {
				if msg.Synthetic() {
					fmt.Fprintf(w, "-- %s\n", msg.Type)
				}
			})

			if _, err := a.requireLogin(c.Context); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
}

func (cmds *commands) chat() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "send one chat message",
		ArgsUsage: "<text>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Required: true, Usage: "recipient user id"},
			&cli.DurationFlag{Name: "wait", Value: 10 * time.Second, Usage: "how long to wait for the realtime connection"},
		},
		Action: func(c *cli.Context) error {
			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if text == "" {
				return cli.Exit("usage: mob chat --to <user-id> <text>", 2)
			}
			a := cmds.app
			manager := a.realtimeManager()
			defer manager.Release()

			events, cancel := manager.Subscribe(16)
			defer cancel()

			if _, err := a.requireLogin(c.Context); err != nil {
				return err
			}
			if err := waitOpen(c.Context, events, c.Duration("wait")); err != nil {
				return err
			}

			inbox := services.NewInboxService(manager, a.logger, 0)
			entry, err := inbox.SendChat(c.String("to"), text)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "sent %s\n", entry.ID)
			return nil
		},
	}
}

// waitOpen blocks until the connection reports connection:opened.
func waitOpen(ctx context.Context, events <-chan models.Message, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return fmt.Errorf("realtime connection closed")
			}
			switch msg.Type {
			case models.MessageConnectionOpened:
				return nil
			case models.MessageConnectionError:
				return fmt.Errorf("realtime connection failed: %s", msg.String("error"))
			}
		case <-timer.C:
			return fmt.Errorf("realtime connection not open after %s", timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (cmds *commands) upload() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "upload an image and print its public URL",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "prefix", Value: "uploads"},
		},
		Action: func(c *cli.Context) error {
			path, err := requireArg(c, 0, "file")
			if err != nil {
				return err
			}
			a := cmds.app
			if _, err := a.requireLogin(c.Context); err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			contentType, err := detectContentType(f, path)
			if err != nil {
				return err
			}

			uploader, err := a.uploader(c.Context)
			if err != nil {
				return err
			}
			res, err := uploader.Upload(c.Context, storage.ObjectKey(c.String("prefix"), filepath.Base(path)), contentType, f)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, res.Location)
			return nil
		},
	}
}

// detectContentType prefers the extension and falls back to sniffing.
func detectContentType(f io.ReadSeeker, path string) (string, error) {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct, nil
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func requireArg(c *cli.Context, i int, name string) (string, error) {
	v := strings.TrimSpace(c.Args().Get(i))
	if v == "" {
		return "", cli.Exit(fmt.Sprintf("missing <%s> argument", name), 2)
	}
	return v, nil
}

func printBracket(w io.Writer, b brackets.Bracket) {
	if b.MatchCount() == 0 && len(b.Unplaced) == 0 {
		fmt.Fprintln(w, "no matches yet")
		return
	}
	for _, r := range b.Rounds {
		if r.Gap {
			fmt.Fprintf(w, "%s: (no matches)\n", r.Label)
			continue
		}
		fmt.Fprintf(w, "%s:\n", r.Label)
		for _, m := range r.Matches {
			fmt.Fprintf(w, "  %-8s %s %s vs %s %s  [%s]\n", m.ID,
				side(m.Team1ID), score(m.Score1), score(m.Score2), side(m.Team2ID), m.Status)
		}
	}
	if len(b.Unplaced) > 0 {
		fmt.Fprintf(w, "unplaced: %d match(es) without a round\n", len(b.Unplaced))
	}
}

func side(id *string) string {
	if id == nil || *id == "" {
		return "TBD"
	}
	return *id
}

func score(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}
