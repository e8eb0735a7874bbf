package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/wricardo/kalah-game/game/player"
	"github.com/wricardo/kalah-game/game/service"
	"github.com/zeromicro/go-zero/core/stores/mon"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	GameStartCollection = "game_start"
	MoveCollection      = "move"
	GameEndCollection   = "game_end"
)

type GameStartRecord struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UpdateAt time.Time          `bson:"updateAt,omitempty" json:"updateAt,omitempty"`
	CreateAt time.Time          `bson:"createAt,omitempty" json:"createAt,omitempty"`

	BoardID     string   `bson:"boardId" json:"boardId"`
	Preset      string   `bson:"preset" json:"preset"`
	Players     []string `bson:"players" json:"players"`
	Computers   []bool   `bson:"computers" json:"computers"`
	PitsPerSide int      `bson:"pitsPerSide" json:"pitsPerSide"`
	Start       string   `bson:"start" json:"start"`
}

type MoveRecord struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UpdateAt time.Time          `bson:"updateAt,omitempty" json:"updateAt,omitempty"`
	CreateAt time.Time          `bson:"createAt,omitempty" json:"createAt,omitempty"`

	BoardID    string `bson:"boardId" json:"boardId"`
	TurnNumber int    `bson:"turnNumber" json:"turnNumber"`
	Player     string `bson:"player" json:"player"`
	PitIndex   int    `bson:"pitIndex" json:"pitIndex"`
	Sown       int    `bson:"sown" json:"sown"`
	Landing    string `bson:"landing" json:"landing"`
	ExtraTurn  bool   `bson:"extraTurn" json:"extraTurn"`
	Captured   int    `bson:"captured" json:"captured"`
}

type GameEndRecord struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UpdateAt time.Time          `bson:"updateAt,omitempty" json:"updateAt,omitempty"`
	CreateAt time.Time          `bson:"createAt,omitempty" json:"createAt,omitempty"`

	BoardID    string         `bson:"boardId" json:"boardId"`
	TurnNumber int            `bson:"turnNumber" json:"turnNumber"`
	Outcome    string         `bson:"outcome" json:"outcome"`
	Winner     string         `bson:"winner,omitempty" json:"winner,omitempty"`
	Stores     map[string]int `bson:"stores" json:"stores"`
}

// DefaultInsertTimeout bounds each insert so a slow server cannot hold a board
const DefaultInsertTimeout = 2 * time.Second

// Inserter is the subset of *mon.Model the recorder needs
type Inserter interface {
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

var (
	_ Inserter         = (*mon.Model)(nil)
	_ service.Recorder = (*MongoRecorder)(nil)
)

// MongoRecorder writes starts, moves and results to three collections
type MongoRecorder struct {
	starts  Inserter
	moves   Inserter
	ends    Inserter
	now     func() time.Time
	timeout time.Duration
}

// NewMongoRecorder connects to url and uses database db
func NewMongoRecorder(url, db string) *MongoRecorder {
	return NewMongoRecorderWithCollections(
		mon.MustNewModel(url, db, GameStartCollection),
		mon.MustNewModel(url, db, MoveCollection),
		mon.MustNewModel(url, db, GameEndCollection),
	)
}

func NewMongoRecorderWithCollections(starts, moves, ends Inserter) *MongoRecorder {
	return &MongoRecorder{
		starts:  starts,
		moves:   moves,
		ends:    ends,
		now:     time.Now,
		timeout: DefaultInsertTimeout,
	}
}

// insertContext drops the caller's cancellation and bounds the insert by timeout
func (r *MongoRecorder) insertContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
}

func (r *MongoRecorder) RecordStart(ctx context.Context, game *service.Game) error {
	b := game.Board
	now := r.now()
	rec := &GameStartRecord{
		ID:          primitive.NewObjectID(),
		CreateAt:    now,
		UpdateAt:    now,
		BoardID:     game.ID,
		Preset:      game.PresetID,
		Players:     []string{b.Player1().Name(), b.Player2().Name()},
		Computers:   []bool{player.IsComputer(b.Player1()), player.IsComputer(b.Player2())},
		PitsPerSide: b.PitsPerSide(),
	}
	if active := b.ActivePlayer(); active != nil {
		rec.Start = active.Name()
	}

	ctx, cancel := r.insertContext(ctx)
	defer cancel()
	if _, err := r.starts.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert game start: %w", err)
	}
	return nil
}

func (r *MongoRecorder) RecordMove(ctx context.Context, game *service.Game, move service.MoveInfo) error {
	now := r.now()
	rec := &MoveRecord{
		ID:         primitive.NewObjectID(),
		CreateAt:   now,
		UpdateAt:   now,
		BoardID:    game.ID,
		TurnNumber: move.TurnNumber,
		Player:     move.Player,
		PitIndex:   move.PitIndex,
		Sown:       move.Sown,
		Landing:    string(move.Landing),
		ExtraTurn:  move.ExtraTurn,
		Captured:   move.Captured,
	}

	ctx, cancel := r.insertContext(ctx)
	defer cancel()
	if _, err := r.moves.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert move: %w", err)
	}
	return nil
}

func (r *MongoRecorder) RecordEnd(ctx context.Context, game *service.Game) error {
	m := endMessage(game, r.now())
	rec := &GameEndRecord{
		ID:         primitive.NewObjectID(),
		CreateAt:   m.Timestamp,
		UpdateAt:   m.Timestamp,
		BoardID:    game.ID,
		TurnNumber: game.Board.TurnNumber(),
		Outcome:    m.Outcome,
		Winner:     m.Winner,
		Stores:     m.Stores,
	}

	ctx, cancel := r.insertContext(ctx)
	defer cancel()
	if _, err := r.ends.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert game end: %w", err)
	}
	return nil
}
