package storyboard

// SceneState is the lifecycle position of one scene on the board.
type SceneState string

const (
	StatePending    SceneState = "pending"
	StateGenerating SceneState = "generating"
	StateComplete   SceneState = "complete"
	StateError      SceneState = "error"
)

// terminal reports whether a state admits no further transitions.
func (s SceneState) terminal() bool {
	return s == StateComplete || s == StateError
}

// SceneCard is the per-scene view a consumer renders: the scene itself, its
// current state, and on completion the path of the saved image.
type SceneCard struct {
	Scene   Scene
	State   SceneState
	Path    string
	Message string
}

// Board tracks per-scene state across one generation run. Transitions are
// monotonic: pending -> generating -> complete or error, and terminal states
// never regress no matter what events arrive afterwards.
type Board struct {
	cards         map[int]*SceneCard
	order         []int
	done          bool
	exportEnabled bool
	successCount  int
}

// NewBoard initializes a board with every scene in pending state.
func NewBoard(scenes []Scene) *Board {
	b := &Board{cards: make(map[int]*SceneCard, len(scenes))}
	for _, scene := range scenes {
		b.cards[scene.SceneNumber] = &SceneCard{Scene: scene, State: StatePending}
		b.order = append(b.order, scene.SceneNumber)
	}
	return b
}

// Apply dispatches one decoded event onto the board. Events carrying unknown
// type tags are ignored.
func (b *Board) Apply(ev Event) {
	switch ev.Type {
	case EventProgress:
		// The pipeline processes scenes in input order, so the 1-based
		// progress index is the scene number being generated.
		if card, ok := b.cards[ev.Current]; ok && card.State == StatePending {
			card.State = StateGenerating
		}
	case EventImageSaved:
		if card, ok := b.cards[ev.SceneNumber]; ok && !card.State.terminal() {
			card.State = StateComplete
			card.Path = ev.Path
			card.Message = ev.Message
			b.successCount++
		}
	case EventError:
		if card, ok := b.cards[ev.SceneNumber]; ok && !card.State.terminal() {
			card.State = StateError
			card.Message = ev.Message
		}
	case EventComplete:
		b.done = true
		b.exportEnabled = ev.SuccessCount > 0
	}
}

// Card returns the card for the given scene number.
func (b *Board) Card(sceneNumber int) (SceneCard, bool) {
	card, ok := b.cards[sceneNumber]
	if !ok {
		return SceneCard{}, false
	}
	return *card, true
}

// Cards returns every card in scene order.
func (b *Board) Cards() []SceneCard {
	out := make([]SceneCard, 0, len(b.order))
	for _, n := range b.order {
		out = append(out, *b.cards[n])
	}
	return out
}

// Done reports whether the run-level complete event has been observed.
func (b *Board) Done() bool { return b.done }

// ExportEnabled reports whether the bulk archive download should be offered;
// it becomes true only when the run completed with at least one saved image.
func (b *Board) ExportEnabled() bool { return b.exportEnabled }

// SuccessCount returns the number of scenes that reached complete.
func (b *Board) SuccessCount() int { return b.successCount }
