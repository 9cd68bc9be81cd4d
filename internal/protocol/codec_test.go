package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecByName(t *testing.T) {
	tests := []struct {
		name    string
		want    Codec
		wantErr bool
	}{
		{name: "", want: JSON},
		{name: "json", want: JSON},
		{name: "msgpack", want: Msgpack},
		{name: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := CodecByName(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownCodec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c)
		})
	}
}

func TestMsgpackUsesJSONFieldNames(t *testing.T) {
	data, err := Msgpack.Marshal(Welcome{Type: MsgWelcome, PlayerID: "p1", Team: "red", Token: "tok"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, Msgpack.Unmarshal(data, &fields))
	assert.Equal(t, "p1", fields["playerId"])
	assert.Equal(t, MsgWelcome, fields["type"])
	assert.NotContains(t, fields, "PlayerID")
}

func TestDecodeTypeAndPayload(t *testing.T) {
	for _, c := range []Codec{JSON, Msgpack} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(PlayerUpdate{
				Type:     MsgPlayerUpdate,
				Position: Vec3{X: 1, Y: 2, Z: 3},
				Rotation: 0.5,
			})
			require.NoError(t, err)

			msgType, err := DecodeType(c, data)
			require.NoError(t, err)
			assert.Equal(t, MsgPlayerUpdate, msgType)

			msg, err := Decode[PlayerUpdate](c, data)
			require.NoError(t, err)
			assert.Equal(t, Vec3{X: 1, Y: 2, Z: 3}, msg.Position)
		})
	}
}

func TestDecodeTypeRejectsBadInput(t *testing.T) {
	_, err := DecodeType(JSON, nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = DecodeType(JSON, []byte(`{"name":"x"}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, err = DecodeType(JSON, []byte(`not json`))
	assert.Error(t, err)
}

func TestOptionalFieldsOmitted(t *testing.T) {
	data, err := JSON.Marshal(JoinLobby{Type: MsgJoinLobby, Name: "ace"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"join_lobby","name":"ace"}`, string(data))
}
