package protocol

// Client -> server message types.
const (
	MsgJoinLobby       = "join_lobby"
	MsgSelectTeam      = "select_team"
	MsgPlayerReady     = "player_ready"
	MsgStartGame       = "start_game"
	MsgPlayerUpdate    = "player_update"
	MsgProjectileFired = "projectile_fired"
	MsgPlantBomb       = "plant_bomb"
	MsgDefuseBomb      = "defuse_bomb"
	MsgRestartGame     = "restart_game"
)

// Server -> client message types.
const (
	MsgWelcome        = "welcome"
	MsgLobbyState     = "lobby_state"
	MsgGameStart      = "game_start"
	MsgCountdown      = "countdown"
	MsgGameState      = "game_state"
	MsgPlayerJoined   = "playerJoined"
	MsgPlayerLeft     = "playerLeft"
	MsgTankMove       = "tankMove"
	MsgTankFire       = "tankFire"
	MsgBombPlanted    = "bombPlanted"
	MsgBombDefused    = "bombDefused"
	MsgBombExploded   = "bombExploded"
	MsgActionProgress = "actionProgress"
	MsgGameEnd        = "gameEnd"
	MsgError          = "error"
)

// Header is the part shared by every message.
type Header struct {
	Type string `json:"type"`
}

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Client -> server

type JoinLobby struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Team  string `json:"team,omitempty"`
	Token string `json:"token,omitempty"`
}

type SelectTeam struct {
	Type string `json:"type"`
	Team string `json:"team"`
}

type PlayerReady struct {
	Type  string `json:"type"`
	Ready bool   `json:"ready"`
}

type StartGame struct {
	Type string `json:"type"`
	Mode string `json:"mode,omitempty"`
}

type PlayerUpdate struct {
	Type     string  `json:"type"`
	Position Vec3    `json:"position"`
	Rotation float64 `json:"rotation"`
}

type ProjectileFired struct {
	Type      string `json:"type"`
	Position  Vec3   `json:"position"`
	Direction Vec3   `json:"direction"`
}

// BombAction is used by both plant_bomb and defuse_bomb. The action is held
// until a message with Release set arrives.
type BombAction struct {
	Type    string `json:"type"`
	Release bool   `json:"release,omitempty"`
}

// Server -> client

type Welcome struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Team     string `json:"team"`
	Token    string `json:"token"`
}

type LobbyPlayer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Team  string `json:"team"`
	Ready bool   `json:"ready"`
	Bot   bool   `json:"bot"`
}

type LobbyState struct {
	Type    string         `json:"type"`
	Phase   string         `json:"phase"`
	Mode    string         `json:"mode"`
	Players []LobbyPlayer  `json:"players"`
	Scores  map[string]int `json:"scores"`
}

type PlayerState struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Team     string  `json:"team"`
	Position Vec3    `json:"position"`
	Rotation float64 `json:"rotation"`
	Health   int     `json:"health"`
	IsDead   bool    `json:"isDead"`
	HasBomb  bool    `json:"hasBomb"`
	Bot      bool    `json:"bot"`
}

type GameStart struct {
	Type    string        `json:"type"`
	Mode    string        `json:"mode"`
	Players []PlayerState `json:"players"`
}

type Countdown struct {
	Type    string `json:"type"`
	Seconds int    `json:"seconds"`
}

type BulletState struct {
	ID        uint64 `json:"id"`
	OwnerID   string `json:"ownerId"`
	Position  Vec3   `json:"position"`
	Direction Vec3   `json:"direction"`
}

type TeamState struct {
	Members  []string `json:"members"`
	Score    int      `json:"score"`
	BombSite *Vec3    `json:"bombSite,omitempty"`
}

type BombState struct {
	State         string  `json:"state"`
	Position      Vec3    `json:"position"`
	Carrier       string  `json:"carrier,omitempty"`
	Progress      float64 `json:"progress"`
	FuseRemaining int64   `json:"fuseRemaining"` // milliseconds
	Blink         bool    `json:"blink"`
}

type GameState struct {
	Type    string               `json:"type"`
	Tick    uint64               `json:"tick"`
	Phase   string               `json:"phase"`
	Players []PlayerState        `json:"players"`
	Bullets []BulletState        `json:"bullets"`
	Teams   map[string]TeamState `json:"teams"`
	Bomb    *BombState           `json:"bomb,omitempty"`
}

type PlayerJoined struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
	Team string `json:"team"`
}

type PlayerLeft struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type TankMove struct {
	Type     string  `json:"type"`
	ID       string  `json:"id"`
	Position Vec3    `json:"position"`
	Rotation float64 `json:"rotation"`
}

type TankFire struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Position  Vec3   `json:"position"`
	Direction Vec3   `json:"direction"`
}

type BombPlanted struct {
	Type     string `json:"type"`
	By       string `json:"by"`
	Position Vec3   `json:"position"`
}

type BombDefused struct {
	Type string `json:"type"`
	By   string `json:"by"`
}

type BombExploded struct {
	Type     string `json:"type"`
	Position Vec3   `json:"position"`
}

// ActionProgress drives the plant/defuse progress bar of one player.
type ActionProgress struct {
	Type     string  `json:"type"`
	Label    string  `json:"label,omitempty"`
	Progress float64 `json:"progress"`
	Active   bool    `json:"active"`
}

type GameEnd struct {
	Type   string         `json:"type"`
	Winner string         `json:"winner"`
	Scores map[string]int `json:"scores"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewError builds an error message.
func NewError(msg string) Error {
	return Error{Type: MsgError, Message: msg}
}
