package main

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketdesk/pkg/ratelimit"
)

// commandRequest is a text command sent in a guild channel.
type commandRequest struct {
	m    *discordgo.MessageCreate
	name string
	args []string
}

// rest returns the arguments from index i joined back together.
func (c *commandRequest) rest(i int) string {
	if i >= len(c.args) {
		return ""
	}
	return strings.Join(c.args[i:], " ")
}

// commandProcessor runs a text command and returns the reply to send, if any.
type commandProcessor func(ctx context.Context, c *commandRequest) (string, error)

// textCommand is a command that can be sent as a message with the command prefix.
type textCommand struct {
	name        string
	usage       string
	description string

	// ownerOnly restricts the command to the guild owner and administrators.
	ownerOnly bool

	// action and cooldown rate limit the command when action is set.
	action   string
	cooldown time.Duration

	run commandProcessor
}

func (a *App) commands() []*textCommand {
	return []*textCommand{
		{name: "close", usage: "close", description: "Close the ticket, with confirmation.", action: ratelimit.ActionClose, cooldown: ratelimit.CloseCooldown, run: a.closeCmd},
		{name: "claim", usage: "claim", description: "Claim the ticket.", action: ratelimit.ActionClaim, cooldown: ratelimit.ClaimCooldown, run: a.claimCmd},
		{name: "unclaim", usage: "unclaim", description: "Release your claim on the ticket.", action: ratelimit.ActionUnclaim, cooldown: ratelimit.ClaimCooldown, run: a.unclaimCmd},
		{name: "add", usage: "add <user>", description: "Add a user to the ticket.", run: a.addCmd},
		{name: "remove", usage: "remove <user>", description: "Remove a user from the ticket.", run: a.removeCmd},
		{name: "rename", usage: "rename <name>", description: "Rename the ticket channel.", run: a.renameCmd},
		{name: "transfer", usage: "transfer <user>", description: "Transfer your claim to another handler.", run: a.transferCmd},
		{name: "proof", usage: "proof", description: "Post the trade summary of a middleman ticket.", run: a.proofCmd},
		{name: "help", usage: "help", description: "Show this message.", run: a.helpCmd},

		{name: "setup", usage: "setup", description: "Post the ticket panel in this channel.", ownerOnly: true, run: a.setupCmd},
		{name: "setuprewards", usage: "setuprewards", description: "Post the reward claim panel in this channel.", ownerOnly: true, run: a.setupRewardsCmd},
		{name: "setupverify", usage: "setupverify", description: "Post the verification panel in this channel.", ownerOnly: true, run: a.setupVerifyCmd},
		{name: "setcategory", usage: "setcategory <category>", description: "Set the category tickets are created in.", ownerOnly: true, run: a.setCategoryCmd},
		{name: "setlogs", usage: "setlogs <channel>", description: "Set the channel transcripts are sent to.", ownerOnly: true, run: a.setLogsCmd},
		{name: "config", usage: "config", description: "Show the configuration of this server.", ownerOnly: true, run: a.configCmd},
		{name: "lock", usage: "lock", description: "Stop new tickets from being opened.", ownerOnly: true, run: a.lockCmd},
		{name: "unlock", usage: "unlock", description: "Allow new tickets to be opened.", ownerOnly: true, run: a.unlockCmd},
		{name: "blacklist", usage: "blacklist <user> <reason>", description: "Stop a user from opening tickets.", ownerOnly: true, run: a.blacklistCmd},
		{name: "unblacklist", usage: "unblacklist <user>", description: "Allow a blacklisted user to open tickets again.", ownerOnly: true, run: a.unblacklistCmd},
		{name: "blacklists", usage: "blacklists", description: "List the blacklisted users.", ownerOnly: true, run: a.blacklistsCmd},
		{name: "setverify", usage: "setverify <unverified> <verified> <member> <channel>", description: "Configure verification.", ownerOnly: true, run: a.setVerifyCmd},
		{name: "setroles", usage: "setroles <staff> <lowtier> <midtier> <hightier>", description: "Configure the ticket handler roles.", ownerOnly: true, run: a.setRolesCmd},
	}
}

// parseCommand splits a message into a command name and its arguments. It reports false when the
// message does not start with the prefix or has no command after it.
func parseCommand(prefix, content string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}

	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

var (
	userMentionRegex    = regexp.MustCompile(`^<@!?(\d+)>$`)
	channelMentionRegex = regexp.MustCompile(`^<#(\d+)>$`)
	roleMentionRegex    = regexp.MustCompile(`^<@&(\d+)>$`)
	snowflakeRegex      = regexp.MustCompile(`^\d{15,21}$`)
)

func parseMention(re *regexp.Regexp, arg string) (string, bool) {
	if m := re.FindStringSubmatch(arg); m != nil {
		return m[1], true
	}
	if snowflakeRegex.MatchString(arg) {
		return arg, true
	}
	return "", false
}

// parseUser accepts a user mention or a raw user ID.
func parseUser(arg string) (string, bool) {
	return parseMention(userMentionRegex, arg)
}

// parseChannel accepts a channel mention or a raw channel ID.
func parseChannel(arg string) (string, bool) {
	return parseMention(channelMentionRegex, arg)
}

// parseRole accepts a role mention or a raw role ID.
func parseRole(arg string) (string, bool) {
	return parseMention(roleMentionRegex, arg)
}
