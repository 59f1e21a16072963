package serializer

import (
	"reflect"
	"testing"
	"time"

	"github.com/ValentinKolb/smolDB/lib/db"
	"github.com/ValentinKolb/smolDB/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON": NewJSONSerializer,
	"GOB":  NewGOBSerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	settings := db.DefaultSettings()
	settings.InvalidationTime = db.Duration(90 * time.Second)
	settings.Admins = []string{"alice"}

	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Write request
		{
			MsgType:  common.MsgTWrite,
			DB:       "test-db",
			Location: "test-location",
			Data:     "test-payload",
		},

		// Write response
		{
			MsgType: common.MsgTWrite,
			Data:    "previous-payload",
			Ok:      true,
		},

		// ListDB response
		{
			MsgType: common.MsgTListDB,
			Names:   []string{"alpha", "beta"},
		},

		// ListContents response
		{
			MsgType:  common.MsgTListContents,
			Contents: map[string]string{"loc1": "v1", "loc2": "v2"},
		},

		// Settings round trip, the most deeply nested message
		{
			MsgType:  common.MsgTSetSettings,
			DB:       "test-db",
			Settings: &settings,
		},

		// Access management request
		{
			MsgType:   common.MsgTAddUser,
			DB:        "test-db",
			TargetKey: "bob",
		},

		// Error response
		{
			MsgType: common.MsgTError,
			ErrCode: "not_found",
			Err:     "test error message",
		},

		// Encrypted wrapper
		{
			MsgType: common.MsgTEncrypted,
			Bytes:   []byte{0x01, 0x02, 0x03},
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypeStrings tests that every message type survives the string
// codec used by the JSON serializer
func TestMessageTypeStrings(t *testing.T) {
	serializer := NewJSONSerializer()

	// don't test MsgTUnknown since this should raise an error
	for msgType := common.MsgTSuccess; msgType <= common.MsgTEncrypted; msgType++ {
		msg := common.Message{MsgType: msgType}

		data, err := serializer.Serialize(msg)
		if err != nil {
			t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
			continue
		}

		var result common.Message
		if err := serializer.Deserialize(data, &result); err != nil {
			t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
			continue
		}

		if result.MsgType != msgType {
			t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
				msgType.String(), result.MsgType.String())
		}
	}
}

// TestInvalidData tests how the serializers handle corrupt input
func TestInvalidData(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			var msg common.Message
			if err := serializer.Deserialize([]byte("not a message"), &msg); err == nil {
				t.Error("Expected error for corrupt data but got none")
			}
		})
	}
}
