package launchpad

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/joescharf/kanban/internal/models"
	"github.com/joescharf/kanban/internal/tracker"
)

// RelevantStatuses are the bug task statuses shown on boards.
var RelevantStatuses = []models.Status{
	models.StatusNew,
	models.StatusIncomplete,
	models.StatusExpired,
	models.StatusConfirmed,
	models.StatusTriaged,
	models.StatusInProgress,
	models.StatusFixCommitted,
	models.StatusFixReleased,
}

type target struct {
	Name                        string `json:"name"`
	SelfLink                    string `json:"self_link"`
	AllMilestonesCollectionLink string `json:"all_milestones_collection_link"`
	ParticipantsCollectionLink  string `json:"participants_collection_link"`
}

type bugTask struct {
	SelfLink       string     `json:"self_link"`
	BugLink        string     `json:"bug_link"`
	AssigneeLink   string     `json:"assignee_link"`
	BugTargetName  string     `json:"bug_target_name"`
	Importance     string     `json:"importance"`
	Status         string     `json:"status"`
	DateInProgress *time.Time `json:"date_in_progress"`
	DateClosed     *time.Time `json:"date_closed"`
}

type bug struct {
	ID                           int      `json:"id"`
	Title                        string   `json:"title"`
	Tags                         []string `json:"tags"`
	LinkedBranchesCollectionLink string   `json:"linked_branches_collection_link"`
}

type bugBranch struct {
	BranchLink string `json:"branch_link"`
}

type branch struct {
	BzrIdentity                  string `json:"bzr_identity"`
	LandingTargetsCollectionLink string `json:"landing_targets_collection_link"`
}

type mergeProposal struct {
	DateCreated *time.Time `json:"date_created"`
	QueueStatus string     `json:"queue_status"`
	WebLink     string     `json:"web_link"`
}

var _ tracker.Source = (*Client)(nil)

// MilestoneItems returns the relevant bug tasks targeted to a milestone.
// project may name a project group or a project; groups are looked up
// first.
func (c *Client) MilestoneItems(ctx context.Context, project, milestone string) ([]*models.WorkItem, error) {
	m, err := c.milestone(ctx, project, milestone)
	if err != nil {
		return nil, err
	}
	tasks, err := collection[bugTask](ctx, c, m.SelfLink, searchQuery(""))
	if err != nil {
		return nil, fmt.Errorf("search milestone %s: %w", milestone, err)
	}
	return c.workItems(ctx, tasks)
}

// PersonItems returns the relevant bug tasks assigned to a person or, for
// a team, to the team or any of its participants. Fix Released tasks closed
// too long ago are left out.
func (c *Client) PersonItems(ctx context.Context, person string) ([]*models.WorkItem, error) {
	var p target
	if err := c.get(ctx, "~"+url.PathEscape(person), nil, &p); err != nil {
		var herr *HTTPError
		if errors.As(err, &herr) && herr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("person %s: %w", person, tracker.ErrNotFound)
		}
		return nil, fmt.Errorf("get person %s: %w", person, err)
	}

	people := []target{p}
	if p.ParticipantsCollectionLink != "" {
		members, err := collection[target](ctx, c, p.ParticipantsCollectionLink, nil)
		if err != nil {
			return nil, fmt.Errorf("list participants of %s: %w", person, err)
		}
		people = append(people, members...)
	}

	var (
		mu    sync.Mutex
		seen  = make(map[string]bool)
		tasks []bugTask
	)
	sem := semaphore.NewWeighted(int64(c.maxConcurrency))
	g, gctx := errgroup.WithContext(ctx)
	for _, member := range people {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			c.log.Debug("checking bugs for participant", "person", member.Name)
			found, err := collection[bugTask](gctx, c, member.SelfLink, searchQuery(member.SelfLink))
			if err != nil {
				return fmt.Errorf("search tasks for %s: %w", member.Name, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, t := range found {
				if seen[t.SelfLink] || c.releasedTooLongAgo(t) {
					continue
				}
				seen[t.SelfLink] = true
				tasks = append(tasks, t)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c.workItems(ctx, tasks)
}

func (c *Client) releasedTooLongAgo(t bugTask) bool {
	if t.Status != models.StatusFixReleased.String() || t.DateClosed == nil {
		return false
	}
	if c.now().Sub(*t.DateClosed) > c.releasedWithin {
		c.log.Debug("fixed too long ago, omitting", "task", t.SelfLink)
		return true
	}
	return false
}

func searchQuery(assignee string) url.Values {
	q := url.Values{"ws.op": {"searchTasks"}}
	for _, s := range RelevantStatuses {
		q.Add("status", s.String())
	}
	if assignee != "" {
		q.Set("assignee", assignee)
	}
	return q
}

func (c *Client) milestone(ctx context.Context, project, name string) (*target, error) {
	for _, kind := range []string{"project_groups", "projects"} {
		t, err := c.findTarget(ctx, kind, project)
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}
		milestones, err := collection[target](ctx, c, t.AllMilestonesCollectionLink, nil)
		if err != nil {
			return nil, fmt.Errorf("list milestones of %s: %w", project, err)
		}
		for i := range milestones {
			if milestones[i].Name == name {
				return &milestones[i], nil
			}
		}
		return nil, fmt.Errorf("milestone %s of %s: %w", name, project, tracker.ErrNotFound)
	}
	return nil, fmt.Errorf("project %s: %w", project, tracker.ErrNotFound)
}

// findTarget searches a top-level collection for an exact name match.
func (c *Client) findTarget(ctx context.Context, collectionName, name string) (*target, error) {
	q := url.Values{"ws.op": {"search"}, "text": {name}}
	found, err := collection[target](ctx, c, collectionName, q)
	if err != nil {
		return nil, fmt.Errorf("search %s for %s: %w", collectionName, name, err)
	}
	for i := range found {
		if found[i].Name == name {
			return &found[i], nil
		}
	}
	return nil, nil
}

// workItems resolves each task's bug and linked branches with bounded
// parallelism. Results keep the order of tasks.
func (c *Client) workItems(ctx context.Context, tasks []bugTask) ([]*models.WorkItem, error) {
	items := make([]*models.WorkItem, len(tasks))
	sem := semaphore.NewWeighted(int64(c.maxConcurrency))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range tasks {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			item, err := c.workItem(gctx, t)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) workItem(ctx context.Context, t bugTask) (*models.WorkItem, error) {
	var b bug
	if err := c.get(ctx, t.BugLink, nil, &b); err != nil {
		return nil, fmt.Errorf("get bug: %w", err)
	}

	priority, err := models.ParsePriority(t.Importance)
	if err != nil {
		return nil, fmt.Errorf("bug %d: %w", b.ID, err)
	}
	status, err := models.ParseStatus(t.Status)
	if err != nil {
		return nil, fmt.Errorf("bug %d: %w", b.ID, err)
	}

	item, err := models.NewWorkItem(fmt.Sprint(b.ID), t.BugTargetName, priority, status, b.Title)
	if err != nil {
		return nil, err
	}
	item.Assignee = personName(t.AssigneeLink)
	item.InProgressSince = t.DateInProgress
	item.Tags = b.Tags

	if err := c.linkBranches(ctx, item, b); err != nil {
		return nil, err
	}
	return item, nil
}

// linkBranches fills in the branch and merge proposal. With several linked
// branches the last one wins, and only the first landing target of each
// branch is considered. Bugs with private linked branches refuse access to
// all of them; those are skipped.
func (c *Client) linkBranches(ctx context.Context, item *models.WorkItem, b bug) error {
	if b.LinkedBranchesCollectionLink == "" {
		return nil
	}
	err := c.readBranches(ctx, item, b.LinkedBranchesCollectionLink)
	var herr *HTTPError
	if errors.As(err, &herr) && herr.Unauthorized() {
		c.log.Warn("skipping forbidden or unauthorized linked branches", "bug", item.ID, "status", herr.Status)
		return nil
	}
	return err
}

func (c *Client) readBranches(ctx context.Context, item *models.WorkItem, link string) error {
	links, err := collection[bugBranch](ctx, c, link, nil)
	if err != nil {
		return err
	}
	for _, l := range links {
		var br branch
		if err := c.get(ctx, l.BranchLink, nil, &br); err != nil {
			return err
		}
		item.Branch = br.BzrIdentity
		if br.LandingTargetsCollectionLink == "" {
			continue
		}
		proposals, err := collection[mergeProposal](ctx, c, br.LandingTargetsCollectionLink, nil)
		if err != nil {
			return err
		}
		if len(proposals) == 0 {
			continue
		}
		mp := proposals[0]
		status, err := models.ParseProposalStatus(mp.QueueStatus)
		if err != nil {
			return fmt.Errorf("bug %s: %w", item.ID, err)
		}
		item.Proposal = mp.WebLink
		item.ProposalStatus = status
		item.ProposalCreated = mp.DateCreated
	}
	return nil
}

// personName extracts the user name from a person link such as
// https://api.launchpad.net/1.0/~jkakar.
func personName(link string) string {
	if link == "" {
		return ""
	}
	i := strings.LastIndex(link, "~")
	if i < 0 {
		return ""
	}
	return strings.TrimSuffix(link[i+1:], "/")
}
