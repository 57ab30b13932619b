package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRequestVariants(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"command":"GROUPPOST","group_id":"tech","subject":"Hi","content":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, &GroupPostRequest{GroupID: "tech", Subject: "Hi", Content: "hello"}, req)

	req, err = DecodeRequest([]byte(`{"command":"JOIN"}`))
	require.NoError(t, err)
	require.IsType(t, &JoinRequest{}, req)
	require.Equal(t, CommandJoin, req.Command())
}

func TestDecodeMessageIDForms(t *testing.T) {
	for _, raw := range []string{
		`{"command":"MESSAGE","msg_id":3}`,
		`{"command":"MESSAGE","msg_id":"3"}`,
	} {
		req, err := DecodeRequest([]byte(raw))
		require.NoError(t, err, raw)
		require.Equal(t, int64(3), req.(*MessageRequest).MsgID.Int64())
	}

	_, err := DecodeRequest([]byte(`{"command":"MESSAGE","msg_id":" 3 "}`))
	require.ErrorIs(t, err, ErrMalformed)

	req, err := DecodeRequest([]byte(`{"command":"MESSAGE"}`))
	require.NoError(t, err)
	require.Nil(t, req.(*MessageRequest).MsgID)

	_, err = DecodeRequest([]byte(`{"command":"GROUPMESSAGE","group_id":"tech","msg_id":"abc"}`))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeRequest([]byte(`{"command":"MESSAGE","msg_id":1.5}`))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeRequestErrors(t *testing.T) {
	_, err := DecodeRequest([]byte(`not json`))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeRequest([]byte(`["JOIN"]`))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeRequest([]byte(`{"username":"a"}`))
	require.ErrorIs(t, err, ErrMissingCommand)

	_, err = DecodeRequest([]byte(`{"command":"join"}`))
	require.ErrorIs(t, err, ErrUnknownCommand)

	_, err = DecodeRequest([]byte(`{"command":"POST","subject":7}`))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestResponseShapes(t *testing.T) {
	data, err := Encode(JoinReply{Reply: Ok("Joined group: Book Club"), Users: []string{"A"}, RecentMessages: []string{}})
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"SUCCESS","message":"Joined group: Book Club","users":["A"],"recent_messages":[]}`, string(data))

	data, err = Encode(Error("not_found", "Group does not exist"))
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"ERROR","message":"Group does not exist","code":"not_found"}`, string(data))

	data, err = Encode(NewNotification("A has joined the group"))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"NOTIFICATION","message":"A has joined the group"}`, string(data))

	var decoded map[string]any
	data, err = Encode(MessageReply{StatusText: StatusSuccess, Message: MessageRecord{MsgID: 1, Sender: "A"}})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "A", decoded["message"].(map[string]any)["sender"])

	var resp Response = PostReply{Reply: Ok(""), MsgID: 4}
	require.Equal(t, StatusSuccess, resp.Status())
}
