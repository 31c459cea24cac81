package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/client"
	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/rank"
	"github.com/trezcool/lophoc/core/reward"
	"github.com/trezcool/lophoc/core/roster"
	"github.com/trezcool/lophoc/core/student"
)

var errQuit = errors.New("quit")

const helpText = `Commands:
  classrooms                      list classrooms
  use CLASSROOM_ID                select a classroom
  list                            show the roster (★ marks the top 3)
  points STUDENT CHANGE [REASON]  award (+) or deduct (-) points; STUDENT is an id or an order number
  rewards                         list the rewards of the classroom
  redeem STUDENT REWARD_ID        preview then redeem a reward
  rankings [LIMIT]                show the leaderboard
  help                            show this help
  quit                            leave`

// console is the interactive classroom terminal. Every command runs to completion before the next line is read.
type console struct {
	cl   *client.Client
	view *roster.View
	rdm  *roster.Redemption
	in   *bufio.Scanner
	out  io.Writer
}

func newConsole(cl *client.Client, in io.Reader, out io.Writer) *console {
	view := roster.NewView()
	return &console{
		cl:   cl,
		view: view,
		rdm:  roster.NewRedemption(view, cl),
		in:   bufio.NewScanner(in),
		out:  out,
	}
}

func (c *console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

// run reads commands until EOF or quit. Command errors are reported and do not stop the loop.
func (c *console) run(ctx context.Context) error {
	c.printf("> ")
	for c.in.Scan() {
		err := c.exec(ctx, strings.Fields(c.in.Text()))
		if err == errQuit {
			return nil
		}
		if err != nil {
			c.printf("error: %s\n", describe(err))
		}
		c.flushEvents()
		c.printf("> ")
	}
	return c.in.Err()
}

func describe(err error) string {
	var rerr *client.RequestError
	if errors.As(err, &rerr) {
		return rerr.Detail
	}
	return err.Error()
}

func (c *console) exec(ctx context.Context, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		c.printf("%s\n", helpText)
		return nil
	case "quit", "exit":
		return errQuit
	case "classrooms":
		return c.listClassrooms(ctx)
	case "use":
		if len(args) != 1 {
			return errors.New("usage: use CLASSROOM_ID")
		}
		return c.use(ctx, args[0])
	}

	if c.view.ClassroomID() == "" {
		return errors.New("no classroom selected, run `use CLASSROOM_ID` first")
	}
	switch cmd {
	case "list":
		c.printRoster()
		return nil
	case "points":
		if len(args) < 2 {
			return errors.New("usage: points STUDENT CHANGE [REASON]")
		}
		change, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Errorf("invalid change %q", args[1])
		}
		return c.changePoints(ctx, args[0], change, strings.Join(args[2:], " "))
	case "rewards":
		return c.listRewards(ctx)
	case "redeem":
		if len(args) != 2 {
			return errors.New("usage: redeem STUDENT REWARD_ID")
		}
		return c.redeem(ctx, args[0], args[1])
	case "rankings":
		limit := 0
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Errorf("invalid limit %q", args[0])
			}
			limit = n
		}
		return c.rankings(ctx, limit)
	}
	return errors.Errorf("unknown command %q, try `help`", cmd)
}

func (c *console) listClassrooms(ctx context.Context) error {
	classrooms, err := c.cl.Classrooms(ctx)
	if err != nil {
		return err
	}
	for _, cls := range classrooms {
		c.printf("%s  %s (%d students)\n", cls.ID, cls.Name, cls.StudentCount)
	}
	return nil
}

func (c *console) use(ctx context.Context, classroomID string) error {
	students, err := c.cl.Students(ctx, classroomID)
	if err != nil {
		return err
	}
	c.view.Replace(classroomID, students)
	c.rdm.Select("")
	c.printf("%d students loaded\n", len(students))
	return nil
}

// resolve finds a student by id or order number.
func (c *console) resolve(ref string) (student.Student, error) {
	if s, ok := c.view.Student(ref); ok {
		return s, nil
	}
	if n, err := strconv.Atoi(ref); err == nil {
		for _, s := range c.view.Students() {
			if s.OrderNumber == n {
				return s, nil
			}
		}
	}
	return student.Student{}, errors.Wrap(roster.ErrUnknownStudent, ref)
}

func (c *console) printRoster() {
	for _, s := range c.view.Students() {
		mark := " "
		if c.view.IsTopThree(s.ID) {
			mark = "★"
		}
		tier := s.Rank()
		progress := rank.ProgressOf(s.TotalPoints)
		next := "max"
		if progress.NextTier != nil {
			next = fmt.Sprintf("%d%%, %d to %s", progress.Percent, progress.Remaining, progress.NextTierName)
		}
		c.printf("%s %3d. %-24s %5d %s %s (%s)\n", mark, s.OrderNumber, s.Name, s.TotalPoints, tier.Icon(), tier.Name(), next)
	}
}

func (c *console) changePoints(ctx context.Context, ref string, change int, reason string) error {
	s, err := c.resolve(ref)
	if err != nil {
		return err
	}
	done, err := c.view.Begin(s.ID)
	if err != nil {
		return err
	}
	defer done()

	res, err := c.cl.ChangePoints(ctx, s.ID, student.PointChange{Change: change, Reason: reason})
	if err != nil {
		return err
	}
	if _, err = c.view.ApplyPointChange(res.Student, res.RankChanged); err != nil && errors.Cause(err) != roster.ErrPromotionMismatch {
		return err
	}
	return nil
}

func (c *console) listRewards(ctx context.Context) error {
	rewards, err := c.cl.Rewards(ctx, c.view.ClassroomID())
	if err != nil {
		return err
	}
	for _, r := range rewards {
		c.printf("%s  %s %s (%d points)\n", r.ID, r.Icon, r.Name, r.PointsRequired)
	}
	return nil
}

func (c *console) findReward(ctx context.Context, id string) (reward.Reward, error) {
	rewards, err := c.cl.Rewards(ctx, c.view.ClassroomID())
	if err != nil {
		return reward.Reward{}, err
	}
	for _, r := range rewards {
		if r.ID == id {
			return r, nil
		}
	}
	return reward.Reward{}, reward.ErrNotFound
}

// redeem previews the redemption and asks for confirmation before calling the backend.
func (c *console) redeem(ctx context.Context, ref, rewardID string) error {
	s, err := c.resolve(ref)
	if err != nil {
		return err
	}
	rwd, err := c.findReward(ctx, rewardID)
	if err != nil {
		return err
	}

	c.rdm.Select(s.ID)
	preview, err := c.rdm.Propose(rwd)
	if err != nil {
		return err
	}
	if !preview.Affordable {
		c.rdm.Cancel()
		return core.NewValidationError(errors.Errorf(
			"%s cannot afford %s: %d points missing", s.Name, rwd.Name, -preview.Balance,
		))
	}

	c.printf("%s redeems %s %s for %d points, %d left. Confirm? [y/N] ", s.Name, rwd.Icon, rwd.Name, rwd.PointsRequired, preview.Balance)
	if !c.in.Scan() || !strings.EqualFold(strings.TrimSpace(c.in.Text()), "y") {
		c.rdm.Cancel()
		c.printf("cancelled\n")
		return nil
	}

	res, err := c.rdm.Confirm(ctx)
	if err != nil {
		return err
	}
	c.printf("%s\n", res.Message)
	return nil
}

func (c *console) rankings(ctx context.Context, limit int) error {
	entries, err := c.cl.Rankings(ctx, c.view.ClassroomID(), limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		c.printf("#%d %-24s %5d %s\n", e.Position, e.Name, e.TotalPoints, e.Rank.Icon())
	}
	return nil
}

// flushEvents presents the queued roster events.
func (c *console) flushEvents() {
	for _, ev := range c.view.Drain() {
		switch e := ev.(type) {
		case roster.Updated:
			name := e.StudentID
			if s, ok := c.view.Student(e.StudentID); ok {
				name = s.Name
			}
			c.printf("%s: %+d\n", name, e.Delta)
		case roster.Promoted:
			c.printf("🎉 %s reached %s %s!\n", e.Name, e.Tier.Icon(), e.Tier.Name())
		}
	}
}
