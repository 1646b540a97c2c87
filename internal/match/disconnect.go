package match

import "github.com/m-mueller678/as4/internal/protocol"

// disconnect removes id from the registry and, if it was paired in a game,
// best-effort notifies the partner with ConnectionLost. Unlike the teacher's
// combat-stance delayed removal, there is no grace period here: the spec
// calls for immediate removal with no delivery acknowledgement required.
func (s *Server) disconnect(id SlotID) {
	st, ok := s.table.state(id)
	s.table.remove(id)
	if !ok {
		return
	}

	switch st.Kind {
	case StateWaiting:
		s.table.takeCode(st.Code)
	case StatePlaying:
		partnerSt, alive := s.table.state(st.Partner)
		if alive && partnerSt.Kind == StatePlaying && partnerSt.Partner == id {
			_ = s.sendTo(st.Partner, protocol.ConnectionLost)
			s.table.setState(st.Partner, Idle())
		}
	}
}
