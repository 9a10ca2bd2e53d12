// Package discord wraps the discordgo calls the bot needs: lookups, sends,
// permission checks, role management.
package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// ErrRoleExists reports a role-name collision on CreateRole.
var ErrRoleExists = errors.New("discord: role name already taken")

// Gateway is the bot's narrow view of the Discord API.
type Gateway struct {
	session *discordgo.Session
}

func NewGateway(session *discordgo.Session) *Gateway {
	return &Gateway{session: session}
}

// GuildExists reports whether the bot can still see the guild.
func (g *Gateway) GuildExists(guildID string) bool {
	if guild, err := g.session.State.Guild(guildID); err == nil && guild != nil {
		return true
	}
	_, err := g.session.Guild(guildID)
	return err == nil
}

// RoleExists reports whether the role is still present in the guild.
func (g *Gateway) RoleExists(guildID, roleID string) bool {
	if role, err := g.session.State.Role(guildID, roleID); err == nil && role != nil {
		return true
	}
	roles, err := g.session.GuildRoles(guildID)
	if err != nil {
		return false
	}
	for _, role := range roles {
		if role.ID == roleID {
			return true
		}
	}
	return false
}

// ChannelExists reports whether the channel is reachable.
func (g *Gateway) ChannelExists(channelID string) bool {
	if ch, err := g.session.State.Channel(channelID); err == nil && ch != nil {
		return true
	}
	_, err := g.session.Channel(channelID)
	return err == nil
}

// CanSend reports whether the bot may send messages in the channel.
func (g *Gateway) CanSend(channelID string) bool {
	if g.session.State.User == nil {
		return false
	}
	perms, err := g.session.UserChannelPermissions(g.session.State.User.ID, channelID)
	if err != nil {
		return false
	}
	return perms&discordgo.PermissionSendMessages != 0
}

// SendMessage sends plain text to a channel.
func (g *Gateway) SendMessage(channelID, content string) error {
	_, err := g.session.ChannelMessageSend(channelID, content)
	return err
}

// SendEmbed sends a rich embed to a channel.
func (g *Gateway) SendEmbed(channelID string, embed *discordgo.MessageEmbed) error {
	_, err := g.session.ChannelMessageSendEmbed(channelID, embed)
	return err
}

// SendMessageEmbed sends text and an embed as one message.
func (g *Gateway) SendMessageEmbed(channelID, content string, embed *discordgo.MessageEmbed) error {
	_, err := g.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		Embeds:  []*discordgo.MessageEmbed{embed},
	})
	return err
}

// MemberDisplayName resolves a user's display name within a guild, falling
// back to the user id when the member cannot be resolved.
func (g *Gateway) MemberDisplayName(guildID, userID string) (string, error) {
	member, err := g.session.GuildMember(guildID, userID)
	if err != nil {
		return "", err
	}
	if member.Nick != "" {
		return member.Nick, nil
	}
	if member.User != nil {
		return member.User.Username, nil
	}
	return userID, nil
}

// CreateRole creates the managed participant role, rejecting name collisions.
func (g *Gateway) CreateRole(guildID, name string) (string, error) {
	roles, err := g.session.GuildRoles(guildID)
	if err != nil {
		return "", fmt.Errorf("discord: list roles: %w", err)
	}
	for _, role := range roles {
		if role.Name == name {
			return "", fmt.Errorf("role %q: %w", name, ErrRoleExists)
		}
	}
	color := 0xe67e22
	role, err := g.session.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:  name,
		Color: &color,
	})
	if err != nil {
		return "", fmt.Errorf("discord: create role: %w", err)
	}
	return role.ID, nil
}

// DeleteRole removes the managed role; a role already gone is not an error.
func (g *Gateway) DeleteRole(guildID, roleID string) error {
	if !g.RoleExists(guildID, roleID) {
		return nil
	}
	return g.session.GuildRoleDelete(guildID, roleID)
}

// AssignRole grants the participant role to a user.
func (g *Gateway) AssignRole(guildID, userID, roleID string) error {
	return g.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

// UnassignRole removes the participant role from a user.
func (g *Gateway) UnassignRole(guildID, userID, roleID string) error {
	return g.session.GuildMemberRoleRemove(guildID, userID, roleID)
}

// Mention formats a user mention.
func Mention(userID string) string {
	return "<@" + userID + ">"
}

// RoleMention formats a role mention.
func RoleMention(roleID string) string {
	return "<@&" + roleID + ">"
}

// ChannelMention formats a channel mention.
func ChannelMention(channelID string) string {
	return "<#" + channelID + ">"
}
