package lobby

// ReadyState tracks a participant's answer during a ready check. Every
// participant returns to ReadyPending when a check starts or ends.
type ReadyState int

const (
	ReadyPending ReadyState = iota
	ReadyAccepted
	ReadyDeclined
)

// Participant is a single roster entry. Identity is the platform snowflake;
// two participants with the same ID are the same participant regardless of
// any other field.
type Participant struct {
	ID     string
	Forced bool
	Ready  ReadyState

	// VoiceChannelID is the channel the participant currently occupies, or
	// empty when they are not in voice.
	VoiceChannelID string

	// EverJoinedVoice latches true once the participant has been seen in
	// voice while the lobby was active. It never resets to false.
	EverJoinedVoice bool
}

func newParticipant(id string, forced bool) *Participant {
	return &Participant{ID: id, Forced: forced, Ready: ReadyPending}
}

func (p *Participant) ReadyUp() {
	p.Ready = ReadyAccepted
}

func (p *Participant) Unready() {
	p.Ready = ReadyDeclined
}

func (p *Participant) ResetReady() {
	p.Ready = ReadyPending
}

func (p *Participant) IsReady() bool {
	return p.Ready == ReadyAccepted
}

func (p *Participant) IsNotReady() bool {
	return p.Ready == ReadyDeclined
}

func (p *Participant) IsPendingReady() bool {
	return p.Ready == ReadyPending
}

func (p *Participant) InVoice() bool {
	return p.VoiceChannelID != ""
}
