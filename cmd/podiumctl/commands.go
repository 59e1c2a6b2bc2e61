package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	app "github.com/okian/podium/internal/app"
)

type command func(ctx context.Context, svc *app.Service, args []string, out io.Writer) error

var commands = map[string]command{
	"apply-rating": applyRating,
	"resync":       resync,
	"import":       importContests,
	"update":       update,
	"register":     register,
}

func applyRating(ctx context.Context, svc *app.Service, args []string, out io.Writer) error {
	pos, err := parseArgs(newFlagSet("apply-rating"), args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("%w: apply-rating takes one contest id", errUsage)
	}
	id, err := parseID("contest id", pos[0])
	if err != nil {
		return err
	}

	res, err := svc.Rate(ctx, id)
	if err != nil {
		return err
	}
	if !res.Applied {
		return errors.New(res.Message)
	}
	fmt.Fprintln(out, res.Message)
	return nil
}

func resync(ctx context.Context, svc *app.Service, args []string, out io.Writer) error {
	fs := newFlagSet("resync")
	user := fs.Int64("user", 0, "only this user id")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("%w: resync takes one contest id", errUsage)
	}
	id, err := parseID("contest id", pos[0])
	if err != nil {
		return err
	}

	results, err := svc.Resync(ctx, id, *user)
	if err != nil {
		return err
	}
	updated, failed := 0, 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(out, "user %d (%s): failed: %v\n", r.UserID, r.Handle, r.Err)
		case r.Updated:
			updated++
			fmt.Fprintf(out, "user %d (%s): %s score %g penalty %d\n",
				r.UserID, r.Handle, r.Standing.Status, r.Standing.Score, r.Standing.Penalty)
		default:
			fmt.Fprintf(out, "user %d (%s): unchanged\n", r.UserID, r.Handle)
		}
	}
	fmt.Fprintf(out, "Resynced %d participants: %d updated, %d failed\n", len(results), updated, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d participants could not be resynced", failed, len(results))
	}
	return nil
}

func importContests(ctx context.Context, svc *app.Service, args []string, out io.Writer) error {
	pos, err := parseArgs(newFlagSet("import"), args)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(pos))
	for _, raw := range pos {
		id, err := parseID("contest id", raw)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	results, err := svc.Import(ctx, ids...)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "contest %d: failed: %v\n", r.ContestID, r.Err)
			continue
		}
		fmt.Fprintf(out, "contest %d: imported %q with %d problems\n", r.ContestID, r.Name, r.Problems)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d contests could not be imported", failed, len(results))
	}
	return nil
}

func update(ctx context.Context, svc *app.Service, args []string, out io.Writer) error {
	fs := newFlagSet("update")
	once := fs.Bool("once", false, "run a single cycle and exit")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 0 {
		return fmt.Errorf("%w: update takes no arguments", errUsage)
	}

	if !*once {
		if err := svc.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		fmt.Fprintln(out, "Stopped")
		return nil
	}

	rep, err := svc.RunCycle(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Cycle %s: %d active, %d processed, %d participants updated, %d skipped, %d failed, %d truncated (%s)\n",
		rep.ID, rep.Active, rep.Processed, rep.Participants, rep.Skipped, rep.Failed, rep.Truncated, rep.Duration)
	if rep.Err != nil {
		return rep.Err
	}
	return nil
}

func register(ctx context.Context, svc *app.Service, args []string, out io.Writer) error {
	fs := newFlagSet("register")
	handle := fs.String("handle", "", "judge handle of the user")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return fmt.Errorf("%w: register takes a contest id and a user id", errUsage)
	}
	contestID, err := parseID("contest id", pos[0])
	if err != nil {
		return err
	}
	userID, err := parseID("user id", pos[1])
	if err != nil {
		return err
	}

	p, err := svc.Register(ctx, contestID, userID, *handle)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Registered user %d (%s) in contest %d\n", p.UserID, p.Handle, p.ContestID)
	return nil
}
