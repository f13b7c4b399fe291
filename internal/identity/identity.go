// Package identity implements the verification handshake: the server's
// Verify(login_code) -> Uuid(uuid)/Deny(reason) exchange, and the
// duty-gating Pass/Deny exchange individual commands perform afterward.
package identity

import (
	"net"

	"github.com/sirupsen/logrus"

	"github.com/rcowham/jamvcs/internal/transport"
	"github.com/rcowham/jamvcs/internal/workspace"
)

// VerifyServer reads one Verify message from conn and resolves it against
// server. On success it replies Uuid(uuid) and returns the member; on
// failure it replies Deny(reason) and returns ok=false.
func VerifyServer(conn net.Conn, server *workspace.ServerWorkspace, logger *logrus.Logger) (uuid string, member *workspace.Member, ok bool) {
	msg := transport.ReadMsg[transport.ClientMessage](conn, logger)
	if msg.Kind != transport.CMVerify {
		transport.SendMsg(conn, transport.DenyMsg("Please verify first."), logger)
		return "", nil, false
	}

	if server == nil {
		transport.SendMsg(conn, transport.DenyMsg("No ServerWorkspace setup!"), logger)
		return "", nil, false
	}

	uuid, member, found := server.MemberByLoginCode(msg.Code)
	if !found {
		transport.SendMsg(conn, transport.DenyMsg("Who are you?"), logger)
		return "", nil, false
	}

	transport.SendMsg(conn, transport.Uuid(uuid), logger)
	return uuid, member, true
}

// VerifyClient reads the server's verification response and reports
// whether it was Pass/Uuid rather than Deny.
func VerifyClient(conn net.Conn, logger *logrus.Logger) bool {
	msg := transport.ReadMsg[transport.ServerMessage](conn, logger)
	switch msg.Kind {
	case transport.SMDeny:
		logger.Warnf("verification denied: %s", msg.Deny)
		return false
	case transport.SMPass, transport.SMUuid:
		return true
	default:
		return false
	}
}

// VerifyDuty gates a command on the caller holding duty: server side
// sends Pass/Deny, client side reads it back.
func VerifyDuty(conn net.Conn, member *workspace.Member, duty workspace.MemberDuty, logger *logrus.Logger) bool {
	if !member.HasDuty(duty) {
		transport.SendMsg(conn, transport.DenyMsg("Only \""+string(duty)+"\" can execute this command."), logger)
		return false
	}
	transport.SendMsg(conn, transport.Pass(), logger)
	return true
}

// VerifyDutyClient is the client-side read of the Pass/Deny a duty check emits.
func VerifyDutyClient(conn net.Conn, logger *logrus.Logger) bool {
	msg := transport.ReadMsg[transport.ServerMessage](conn, logger)
	return msg.Kind == transport.SMPass
}
