package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"threadsctl/domain/dto"
	"threadsctl/domain/model"

	"github.com/jessevdk/go-flags"
)

func registerCommands(parser *flags.Parser, a *App) {
	add := func(name, short string, data interface{}) {
		if _, err := parser.AddCommand(name, short, "", data); err != nil {
			panic(fmt.Sprintf("register command %s: %v", name, err))
		}
	}
	add("auth", "Authorize this client and store a long-lived token", &authCommand{app: a})
	add("refresh", "Extend the stored long-lived token", &refreshCommand{app: a})
	add("me", "Show the authenticated profile", &meCommand{app: a})
	add("post", "Publish a text, image or video post", &postCommand{app: a})
	add("carousel", "Publish a carousel of 2 to 10 images or videos", &carouselCommand{app: a})
	add("delete", "Delete a post", &deleteCommand{app: a})
	add("list", "List your posts", &listCommand{app: a})
	add("get", "Show one post", &getCommand{app: a})
	add("replies", "List top-level replies to a post", &repliesCommand{app: a})
	add("conversation", "List every reply in a post's conversation", &conversationCommand{app: a})
	add("hide", "Hide a reply", &hideCommand{app: a, hide: true})
	add("unhide", "Unhide a reply", &hideCommand{app: a, hide: false})
	add("insights", "Show metrics for a post", &insightsCommand{app: a})
	add("user-insights", "Show account-level metrics", &userInsightsCommand{app: a})
	add("limit", "Show the remaining publishing quota", &limitCommand{app: a})
}

type postIDArg struct {
	ID string `positional-arg-name:"post-id" required:"yes"`
}

// pageFlags are shared by the paged read commands
type pageFlags struct {
	Limit  int    `long:"limit" description:"Maximum number of items"`
	Before string `long:"before" description:"Cursor for the previous page"`
	After  string `long:"after" description:"Cursor for the next page"`
	Fields string `long:"fields" description:"Comma-separated fields to request"`
}

func (p pageFlags) request() dto.ListRequest {
	return dto.ListRequest{Fields: p.Fields, Limit: p.Limit, Before: p.Before, After: p.After}
}

type authCommand struct {
	app       *App
	AppID     string `long:"app-id" description:"Threads app id"`
	AppSecret string `long:"app-secret" description:"Threads app secret"`
	Port      *int   `long:"port" description:"Local callback port (0 picks a free port)"`
}

func (c *authCommand) Execute(_ []string) error {
	a := c.app
	stored, err := a.Store.Peek(a.ctx)
	if err != nil {
		return err
	}
	appID := firstNonEmpty(c.AppID, stored.AppID, a.Defaults.AppID)
	appSecret := firstNonEmpty(c.AppSecret, stored.AppSecret, a.Defaults.AppSecret)
	var missing []string
	if appID == "" {
		missing = append(missing, "app_id")
	}
	if appSecret == "" {
		missing = append(missing, "app_secret")
	}
	if len(missing) > 0 {
		return &model.ConfigError{Kind: model.ConfigMissingCredentials, Fields: missing}
	}
	port := a.Defaults.RedirectPort
	if c.Port != nil {
		port = *c.Port
	}
	if port < 0 || port > 65535 {
		return cliFail("INVALID_ARGS", fmt.Sprintf("port %d is out of range", port), nil)
	}

	creds, err := a.Auth.Authenticate(a.ctx, appID, appSecret, port)
	if err != nil {
		return err
	}
	data := map[string]interface{}{"user_id": creds.UserID, "expires_at": creds.ExpiresAt}
	return a.emit(data, func(w io.Writer) {
		fmt.Fprintln(w, "Authenticated.")
		if creds.UserID != "" {
			fmt.Fprintf(w, "User id: %s\n", creds.UserID)
		}
		if creds.ExpiresAt != nil {
			fmt.Fprintf(w, "Token expires: %s\n", creds.ExpiresAt.Local().Format(time.RFC1123))
		}
	})
}

type refreshCommand struct {
	app *App
}

func (c *refreshCommand) Execute(_ []string) error {
	a := c.app
	creds, err := a.Auth.Refresh(a.ctx)
	if err != nil {
		return err
	}
	return a.emit(map[string]interface{}{"expires_at": creds.ExpiresAt}, func(w io.Writer) {
		if creds.ExpiresAt != nil {
			fmt.Fprintf(w, "Token refreshed; expires %s\n", creds.ExpiresAt.Local().Format(time.RFC1123))
			return
		}
		fmt.Fprintln(w, "Token refreshed.")
	})
}

type meCommand struct {
	app *App
}

func (c *meCommand) Execute(_ []string) error {
	a := c.app
	sess, err := a.session()
	if err != nil {
		return err
	}
	p, err := a.Threads.Me(a.ctx, sess)
	if err != nil {
		return err
	}
	return a.emit(p, func(w io.Writer) { renderProfile(w, p) })
}

type postCommand struct {
	app          *App
	Text         string `short:"t" long:"text" description:"Post text (or pass it as arguments)"`
	Image        string `long:"image" description:"Public URL of an image"`
	Video        string `long:"video" description:"Public URL of a video"`
	ReplyTo      string `long:"reply-to" description:"Post id to reply to"`
	ReplyControl string `long:"reply-control" description:"Who can reply: everyone, accounts_you_follow, mentioned_only"`
	Quote        string `long:"quote" description:"Post id to quote"`
	Link         string `long:"link" description:"Link attachment for a text post"`
}

func (c *postCommand) Execute(args []string) error {
	a := c.app
	text := c.Text
	if text == "" {
		text = strings.Join(args, " ")
	}
	if c.Image != "" && c.Video != "" {
		return cliFail("INVALID_ARGS", "use either --image or --video, not both", nil)
	}
	req := dto.PostRequest{
		Text:           text,
		ImageURL:       c.Image,
		VideoURL:       c.Video,
		ReplyToID:      c.ReplyTo,
		ReplyControl:   c.ReplyControl,
		QuotePostID:    c.Quote,
		LinkAttachment: c.Link,
	}
	// arguments are checked before the session so a bad invocation never touches the network
	if err := a.Publish.Validate(req); err != nil {
		return err
	}
	sess, err := a.session()
	if err != nil {
		return err
	}
	res, err := a.Publish.Publish(a.ctx, sess, req)
	if err != nil {
		return err
	}
	return a.emit(res, func(w io.Writer) { renderPublished(w, res) })
}

type carouselCommand struct {
	app          *App
	Text         string `short:"t" long:"text" description:"Caption"`
	ReplyTo      string `long:"reply-to" description:"Post id to reply to"`
	ReplyControl string `long:"reply-control" description:"Who can reply: everyone, accounts_you_follow, mentioned_only"`
	Args         struct {
		URLs []string `positional-arg-name:"media-url"`
	} `positional-args:"yes"`
}

func (c *carouselCommand) Execute(_ []string) error {
	a := c.app
	req := dto.CarouselRequest{
		MediaURLs:    c.Args.URLs,
		Text:         c.Text,
		ReplyToID:    c.ReplyTo,
		ReplyControl: c.ReplyControl,
	}
	if err := a.Publish.ValidateCarousel(req); err != nil {
		return err
	}
	sess, err := a.session()
	if err != nil {
		return err
	}
	res, err := a.Publish.PublishCarousel(a.ctx, sess, req)
	if err != nil {
		return err
	}
	return a.emit(res, func(w io.Writer) { renderPublished(w, res) })
}

type deleteCommand struct {
	app  *App
	Args postIDArg `positional-args:"yes"`
}

func (c *deleteCommand) Execute(_ []string) error {
	a := c.app
	sess, err := a.session()
	if err != nil {
		return err
	}
	if err := a.Threads.Delete(a.ctx, sess, c.Args.ID); err != nil {
		return err
	}
	return a.emit(map[string]interface{}{"deleted": true, "id": c.Args.ID}, func(w io.Writer) {
		fmt.Fprintf(w, "Deleted %s\n", c.Args.ID)
	})
}

type listCommand struct {
	app *App
	pageFlags
	Since string `long:"since" description:"Only posts after this date (YYYY-MM-DD or unix time)"`
	Until string `long:"until" description:"Only posts before this date (YYYY-MM-DD or unix time)"`
}

func (c *listCommand) Execute(_ []string) error {
	a := c.app
	sess, err := a.session()
	if err != nil {
		return err
	}
	req := c.request()
	req.Since = c.Since
	req.Until = c.Until
	page, err := a.Threads.ListPosts(a.ctx, sess, req)
	if err != nil {
		return err
	}
	return a.emit(page, func(w io.Writer) { renderPosts(w, page) })
}

type getCommand struct {
	app  *App
	Args postIDArg `positional-args:"yes"`
}

func (c *getCommand) Execute(_ []string) error {
	a := c.app
	sess, err := a.session()
	if err != nil {
		return err
	}
	post, err := a.Threads.GetPost(a.ctx, sess, c.Args.ID)
	if err != nil {
		return err
	}
	return a.emit(post, func(w io.Writer) { renderPost(w, post) })
}

type repliesCommand struct {
	app *App
	pageFlags
	Reverse bool      `long:"reverse" description:"Oldest first"`
	Args    postIDArg `positional-args:"yes"`
}

func (c *repliesCommand) Execute(_ []string) error {
	a := c.app
	sess, err := a.session()
	if err != nil {
		return err
	}
	req := c.request()
	req.Reverse = c.Reverse
	page, err := a.Threads.Replies(a.ctx, sess, c.Args.ID, req)
	if err != nil {
		return err
	}
	return a.emit(page, func(w io.Writer) { renderPosts(w, page) })
}

type conversationCommand struct {
	app *App
	pageFlags
	Reverse bool      `long:"reverse" description:"Oldest first"`
	Args    postIDArg `positional-args:"yes"`
}

func (c *conversationCommand) Execute(_ []string) error {
	a := c.app
	sess, err := a.session()
	if err != nil {
		return err
	}
	req := c.request()
	req.Reverse = c.Reverse
	page, err := a.Threads.Conversation(a.ctx, sess, c.Args.ID, req)
	if err != nil {
		return err
	}
	return a.emit(page, func(w io.Writer) { renderPosts(w, page) })
}

type hideCommand struct {
	app  *App
	hide bool
	Args struct {
		ID string `positional-arg-name:"reply-id" required:"yes"`
	} `positional-args:"yes"`
}

func (c *hideCommand) Execute(_ []string) error {
	a := c.app
	sess, err := a.session()
	if err != nil {
		return err
	}
	if err := a.Threads.SetReplyHidden(a.ctx, sess, c.Args.ID, c.hide); err != nil {
		return err
	}
	verb := "Unhid"
	if c.hide {
		verb = "Hid"
	}
	return a.emit(map[string]interface{}{"id": c.Args.ID, "hidden": c.hide}, func(w io.Writer) {
		fmt.Fprintf(w, "%s reply %s\n", verb, c.Args.ID)
	})
}

type insightsCommand struct {
	app    *App
	Metric []string  `short:"m" long:"metric" description:"Metric to fetch (repeatable or comma-separated)"`
	Args   postIDArg `positional-args:"yes"`
}

func (c *insightsCommand) Execute(_ []string) error {
	a := c.app
	sess, err := a.session()
	if err != nil {
		return err
	}
	insights, err := a.Threads.PostInsights(a.ctx, sess, c.Args.ID, splitMetrics(c.Metric))
	if err != nil {
		return err
	}
	return a.emit(insights, func(w io.Writer) { renderInsights(w, insights) })
}

type userInsightsCommand struct {
	app       *App
	Metric    []string `short:"m" long:"metric" description:"Metric to fetch (repeatable or comma-separated)"`
	Since     string   `long:"since" description:"Start date (YYYY-MM-DD or unix time)"`
	Until     string   `long:"until" description:"End date (YYYY-MM-DD or unix time)"`
	Breakdown string   `long:"breakdown" description:"Breakdown for follower_demographics (country, city, age, gender)"`
}

func (c *userInsightsCommand) Execute(_ []string) error {
	a := c.app
	since, err := parseTimeArg("since", c.Since)
	if err != nil {
		return err
	}
	until, err := parseTimeArg("until", c.Until)
	if err != nil {
		return err
	}
	sess, err := a.session()
	if err != nil {
		return err
	}
	insights, err := a.Threads.UserInsights(a.ctx, sess, dto.InsightsRequest{
		Metric:    strings.Join(splitMetrics(c.Metric), ","),
		Since:     since,
		Until:     until,
		Breakdown: c.Breakdown,
	})
	if err != nil {
		return err
	}
	return a.emit(insights, func(w io.Writer) { renderInsights(w, insights) })
}

type limitCommand struct {
	app *App
}

func (c *limitCommand) Execute(_ []string) error {
	a := c.app
	sess, err := a.session()
	if err != nil {
		return err
	}
	limit, err := a.Threads.PublishingLimit(a.ctx, sess)
	if err != nil {
		return err
	}
	return a.emit(limit, func(w io.Writer) { renderLimit(w, limit) })
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitMetrics(in []string) []string {
	var out []string
	for _, m := range in {
		for _, part := range strings.Split(m, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseTimeArg accepts a unix timestamp or a YYYY-MM-DD date (UTC midnight)
func parseTimeArg(name, v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
		return ts, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return 0, cliFail("INVALID_ARGS", fmt.Sprintf("--%s must be YYYY-MM-DD or a unix timestamp, got %q", name, v), nil)
	}
	return t.Unix(), nil
}
