package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/ignite/pulse-bot/internal/service/audience"
)

const (
	cmdUsersUpdate = "/users_update"
	cmdUsersLists  = "/users_lists_management"
)

func registerUserHandlers(b *Bot) {
	b.Command(cmdUsersUpdate, handleUsersUpdate)
	b.Command(cmdUsersLists, handleUsersLists)
}

func handleUsersUpdate(ctx context.Context, d *Deps, cmd slack.SlashCommand) error {
	if !requireAdmin(ctx, d, cmd.ChannelID, cmd.UserID) {
		return nil
	}
	n, err := d.Roster.Sync(ctx)
	if err != nil {
		return fmt.Errorf("roster sync: %w", err)
	}
	d.ephemeral(ctx, cmd.ChannelID, cmd.UserID,
		fmt.Sprintf("Roster refreshed: %d active users.", n))
	return nil
}

const listsUsage = "Usage:\n" +
	"`" + cmdUsersLists + " list`\n" +
	"`" + cmdUsersLists + " create <name> [description]`\n" +
	"`" + cmdUsersLists + " delete <name>`\n" +
	"`" + cmdUsersLists + " members <name>`\n" +
	"`" + cmdUsersLists + " add <name> @user`\n" +
	"`" + cmdUsersLists + " remove <name> @user`"

// handleUsersLists is the audience list admin surface. Subcommands ride in
// the slash command text so every operation is one self-contained message.
func handleUsersLists(ctx context.Context, d *Deps, cmd slack.SlashCommand) error {
	if !requireAdmin(ctx, d, cmd.ChannelID, cmd.UserID) {
		return nil
	}

	reply := func(text string) { d.ephemeral(ctx, cmd.ChannelID, cmd.UserID, text) }

	fields := strings.Fields(cmd.Text)
	if len(fields) == 0 {
		reply(listsUsage)
		return nil
	}

	switch fields[0] {
	case "list":
		return listsOverview(ctx, d, reply)
	case "create":
		if len(fields) < 2 {
			reply(listsUsage)
			return nil
		}
		return listsCreate(ctx, d, reply, fields[1], strings.Join(fields[2:], " "))
	case "delete":
		if len(fields) != 2 {
			reply(listsUsage)
			return nil
		}
		return listsDelete(ctx, d, reply, fields[1])
	case "members":
		if len(fields) != 2 {
			reply(listsUsage)
			return nil
		}
		return listsMembers(ctx, d, reply, fields[1])
	case "add", "remove":
		if len(fields) != 3 {
			reply(listsUsage)
			return nil
		}
		return listsMembership(ctx, d, reply, fields[0], fields[1], fields[2])
	default:
		reply(listsUsage)
		return nil
	}
}

func listsOverview(ctx context.Context, d *Deps, reply func(string)) error {
	lists, err := d.Audience.List(ctx)
	if err != nil {
		return fmt.Errorf("list audience lists: %w", err)
	}
	if len(lists) == 0 {
		reply("No audience lists yet.")
		return nil
	}
	var b strings.Builder
	b.WriteString("Audience lists:\n")
	for _, l := range lists {
		members, err := d.Audience.Members(ctx, l.ID)
		if err != nil {
			return fmt.Errorf("count members of %s: %w", l.Name, err)
		}
		fmt.Fprintf(&b, "• *%s*: %d member(s)", l.Name, len(members))
		if l.Description != "" {
			fmt.Fprintf(&b, " (%s)", l.Description)
		}
		b.WriteString("\n")
	}
	reply(b.String())
	return nil
}

func listsCreate(ctx context.Context, d *Deps, reply func(string), name, description string) error {
	l, err := d.Audience.Create(ctx, name, description)
	if errors.Is(err, audience.ErrDuplicateName) {
		reply(fmt.Sprintf("A list named *%s* already exists.", name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("create list: %w", err)
	}
	reply(fmt.Sprintf("List *%s* created. Add people with `%s add %s @user`.",
		l.Name, cmdUsersLists, l.Name))
	return nil
}

func listsDelete(ctx context.Context, d *Deps, reply func(string), name string) error {
	l, err := d.Audience.GetByName(ctx, name)
	if errors.Is(err, audience.ErrNotFound) {
		reply(fmt.Sprintf("No list named *%s*.", name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("find list: %w", err)
	}

	err = d.Audience.Delete(ctx, l.ID)
	if errors.Is(err, audience.ErrListInUse) {
		reply(fmt.Sprintf(
			"*%s* is referenced by a survey's audience and cannot be deleted. Detach it from every survey first.", name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	reply(fmt.Sprintf("List *%s* deleted.", name))
	return nil
}

func listsMembers(ctx context.Context, d *Deps, reply func(string), name string) error {
	l, err := d.Audience.GetByName(ctx, name)
	if errors.Is(err, audience.ErrNotFound) {
		reply(fmt.Sprintf("No list named *%s*.", name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("find list: %w", err)
	}

	members, err := d.Audience.Members(ctx, l.ID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	if len(members) == 0 {
		reply(fmt.Sprintf("*%s* has no members.", name))
		return nil
	}
	mentions := make([]string, len(members))
	for i, m := range members {
		mentions[i] = "<@" + m.SlackID + ">"
	}
	reply(fmt.Sprintf("*%s* (%d): %s", name, len(members), strings.Join(mentions, ", ")))
	return nil
}

func listsMembership(ctx context.Context, d *Deps, reply func(string), verb, name, userToken string) error {
	l, err := d.Audience.GetByName(ctx, name)
	if errors.Is(err, audience.ErrNotFound) {
		reply(fmt.Sprintf("No list named *%s*.", name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("find list: %w", err)
	}

	slackID := parseUserMention(userToken)
	if slackID == "" {
		reply("Could not read that user mention. Use `@user` or a raw member id.")
		return nil
	}

	if verb == "add" {
		err = d.Audience.AddMember(ctx, l.ID, slackID, d.Users.GreetingName(ctx, slackID))
		if errors.Is(err, audience.ErrDuplicateMember) {
			reply(fmt.Sprintf("<@%s> is already in *%s*.", slackID, name))
			return nil
		}
		if err != nil {
			return fmt.Errorf("add member: %w", err)
		}
		reply(fmt.Sprintf("Added <@%s> to *%s*.", slackID, name))
		return nil
	}

	err = d.Audience.RemoveMember(ctx, l.ID, slackID)
	if errors.Is(err, audience.ErrNotFound) {
		reply(fmt.Sprintf("<@%s> is not in *%s*.", slackID, name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	reply(fmt.Sprintf("Removed <@%s> from *%s*.", slackID, name))
	return nil
}

// parseUserMention extracts a member id from Slack's mention escape
// ("<@U123|name>" or "<@U123>") or accepts a raw id ("U123").
func parseUserMention(tok string) string {
	tok = strings.TrimSpace(tok)
	if strings.HasPrefix(tok, "<@") && strings.HasSuffix(tok, ">") {
		tok = tok[2 : len(tok)-1]
		if i := strings.IndexByte(tok, '|'); i >= 0 {
			tok = tok[:i]
		}
	}
	if tok == "" || tok[0] != 'U' && tok[0] != 'W' {
		return ""
	}
	return tok
}
