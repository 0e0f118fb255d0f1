package relay

import (
	"github.com/nodecrypt/nodecrypt/lib/protocol"
	"github.com/sirupsen/logrus"
)

// Channel is one named group: an ordered set of joined sessions. It is
// created lazily on first join and destroyed when empty. Channel names are
// opaque byte strings matched exactly.
//
// All methods run on the owning room's event loop, so membership updates are
// sequentially consistent without locking.
type Channel struct {
	name    string
	members []*ClientSession
}

// NewChannel creates an empty channel.
func NewChannel(name string) *Channel {
	return &Channel{name: name}
}

// Join adds a session and announces the new membership. The joiner receives
// its individual list first, so it learns its own id and the existing members
// before any chat frame can arrive; then the updated list goes to everyone.
func (c *Channel) Join(sess *ClientSession) {
	for _, m := range c.members {
		if m.ID == sess.ID {
			// Join is not repeatable; the session machine already rejects a
			// second join envelope, this guards the membership set itself.
			return
		}
	}
	c.members = append(c.members, sess)

	list := c.list()
	if err := sess.SendInner(list); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"at":        "relay.Channel.Join",
			"client_id": sess.ID,
		}).Warn("failed_to_send_joiner_list")
	}
	c.broadcastList()

	log.WithFields(logrus.Fields{
		"at":        "relay.Channel.Join",
		"channel":   c.name,
		"client_id": sess.ID,
		"user_name": sess.UserName,
		"members":   len(c.members),
	}).Info("client_joined")
}

// Leave removes a session and broadcasts the updated list to the remaining
// members.
func (c *Channel) Leave(sess *ClientSession) {
	idx := -1
	for i, m := range c.members {
		if m.ID == sess.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	c.members = append(c.members[:idx], c.members[idx+1:]...)
	c.broadcastList()

	log.WithFields(logrus.Fields{
		"at":        "relay.Channel.Leave",
		"channel":   c.name,
		"client_id": sess.ID,
		"members":   len(c.members),
	}).Info("client_left")
}

// ForwardBroadcast relays a 'w' envelope to every member except the sender.
// Each recipient gets the inner envelope re-encrypted under its own outer
// key, carrying only its own entry from the sender's per-recipient
// ciphertext map. The sender is never echoed.
func (c *Channel) ForwardBroadcast(sender *ClientSession, inner *protocol.Envelope) {
	for _, m := range c.members {
		if m.ID == sender.ID {
			continue
		}
		data := inner.Data
		if len(inner.Ciphertexts) > 0 {
			ct, ok := inner.Ciphertexts[m.ID]
			if !ok {
				// The sender has no established key for this member yet.
				continue
			}
			data = ct
		}
		out := &protocol.Envelope{
			Action:   protocol.ActionChannel,
			ClientID: sender.ID,
			UserName: sender.UserName,
			Key:      inner.Key,
			Data:     data,
		}
		if err := m.SendInner(out); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"at":        "relay.Channel.ForwardBroadcast",
				"client_id": m.ID,
			}).Debug("broadcast_send_failed")
		}
	}
}

// ForwardUnicast relays a 'c' envelope to its target only. An unknown target
// is dropped silently: the inner layer is opaque to the relay, so there is no
// meaningful error it could signal.
func (c *Channel) ForwardUnicast(sender *ClientSession, inner *protocol.Envelope) {
	var target *ClientSession
	for _, m := range c.members {
		if m.ID == inner.Target {
			target = m
			break
		}
	}
	if target == nil || target.ID == sender.ID {
		log.WithFields(logrus.Fields{
			"at":      "relay.Channel.ForwardUnicast",
			"channel": c.name,
			"target":  inner.Target,
		}).Debug("dropping_unicast_to_unknown_target")
		return
	}
	out := &protocol.Envelope{
		Action:   protocol.ActionClient,
		ClientID: sender.ID,
		UserName: sender.UserName,
		Target:   inner.Target,
		Key:      inner.Key,
		Data:     inner.Data,
	}
	if err := target.SendInner(out); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"at":        "relay.Channel.ForwardUnicast",
			"client_id": target.ID,
		}).Debug("unicast_send_failed")
	}
}

// Empty reports whether the channel has no members left.
func (c *Channel) Empty() bool {
	return len(c.members) == 0
}

// Members returns the current member sessions in join order.
func (c *Channel) Members() []*ClientSession {
	return c.members
}

func (c *Channel) list() *protocol.Envelope {
	infos := make([]protocol.ClientInfo, 0, len(c.members))
	for _, m := range c.members {
		infos = append(infos, protocol.ClientInfo{
			ClientID: m.ID,
			UserName: m.UserName,
		})
	}
	return &protocol.Envelope{
		Action:  protocol.ActionList,
		Clients: infos,
	}
}

func (c *Channel) broadcastList() {
	list := c.list()
	for _, m := range c.members {
		if err := m.SendInner(list); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"at":        "relay.Channel.broadcastList",
				"client_id": m.ID,
			}).Debug("list_send_failed")
		}
	}
}
