package mpvengine_test

import (
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/avkit/player-bridge/internal/mocks"
	"github.com/avkit/player-bridge/internal/mpvengine"
)

func TestNext_MultiplePayloadsInOneRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	conn := mocks.NewMockConn(ctrl)
	conn.
		EXPECT().
		Read(gomock.Any()).
		DoAndReturn(func(buf []byte) (int, error) {
			result := []byte("{\"name\":\"test\",\"data\":5}\n{\"event\":\"file-loaded\"}\n")

			return copy(buf, result), nil
		}).
		Times(1)

	uut := mpvengine.NewResponsesIterator(conn)
	if uut == nil {
		t.Fatalf("Response iterator is nil")
	}

	// when
	response1, err := uut.Next()
	if err != nil {
		t.Fatalf("Unexpected error reported for response1: %s", err)
	}

	response2, err := uut.Next()
	if err != nil {
		t.Fatalf("Unexpected error reported for response2: %s", err)
	}

	// then
	expectedName1 := "test"
	name1 := response1.Name
	if name1 != expectedName1 {
		t.Errorf("Expected name %s to equal %s", name1, expectedName1)
	}

	expectedData1 := float64(5)
	data1, ok := response1.Data.(float64)
	if !ok {
		t.Fatalf("Cannot cast data in response 1 to float64")
	}

	if data1 != expectedData1 {
		t.Errorf("Expected data %f to equal %f", data1, expectedData1)
	}

	expectedEvent2 := "file-loaded"
	event2 := response2.Event
	if event2 != expectedEvent2 {
		t.Errorf("Expected event %s to equal %s", event2, expectedEvent2)
	}
}

func TestNext_OnePayloadInMultipleReads(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	conn := mocks.NewMockConn(ctrl)
	firstReadCall := conn.
		EXPECT().
		Read(gomock.Any()).
		DoAndReturn(func(buf []byte) (int, error) {
			result := []byte("{\"name\":\n")

			return copy(buf, result), nil
		}).
		Times(1)

	secondReadCall := conn.
		EXPECT().
		Read(gomock.Any()).
		DoAndReturn(func(buf []byte) (int, error) {
			result := []byte("\"test\",")

			return copy(buf, result), nil
		}).
		Times(1).
		After(firstReadCall)

	conn.
		EXPECT().
		Read(gomock.Any()).
		DoAndReturn(func(buf []byte) (int, error) {
			result := []byte("\"data\":5}\n{\"event\":\"end-file\"}\n")

			return copy(buf, result), nil
		}).
		Times(1).
		After(secondReadCall)

	uut := mpvengine.NewResponsesIterator(conn)
	if uut == nil {
		t.Fatalf("Response iterator is nil")
	}

	// when
	response1, err := uut.Next()
	if err != nil {
		t.Fatalf("Unexpected error reported for response1: %s", err)
	}

	response2, err := uut.Next()
	if err != nil {
		t.Fatalf("Unexpected error reported for response2: %s", err)
	}

	// then
	expectedName1 := "test"
	name1 := response1.Name
	if name1 != expectedName1 {
		t.Errorf("Expected name %s to equal %s", name1, expectedName1)
	}

	expectedData1 := float64(5)
	data1, ok := response1.Data.(float64)
	if !ok {
		t.Fatalf("Cannot cast data in response 1 to float64")
	}

	if data1 != expectedData1 {
		t.Errorf("Expected data %f to equal %f", data1, expectedData1)
	}

	expectedEvent2 := "end-file"
	event2 := response2.Event
	if event2 != expectedEvent2 {
		t.Errorf("Expected event %s to equal %s", event2, expectedEvent2)
	}
}

func TestNext_ConsecutiveNewlines(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// given
	conn := mocks.NewMockConn(ctrl)
	conn.
		EXPECT().
		Read(gomock.Any()).
		DoAndReturn(func(buf []byte) (int, error) {
			result := []byte("\n{\"name\":\"test\",\"data\":5}\n\n\n\n{\"event\":\"playback-restart\"}\n\n")

			return copy(buf, result), nil
		}).
		Times(1)

	uut := mpvengine.NewResponsesIterator(conn)
	if uut == nil {
		t.Fatalf("Response iterator is nil")
	}

	// when
	response1, err := uut.Next()
	if err != nil {
		t.Fatalf("Unexpected error reported for response1: %s", err)
	}

	response2, err := uut.Next()
	if err != nil {
		t.Fatalf("Unexpected error reported for response2: %s", err)
	}

	// then
	expectedName1 := "test"
	name1 := response1.Name
	if name1 != expectedName1 {
		t.Errorf("Expected name %s to equal %s", name1, expectedName1)
	}

	expectedData1 := float64(5)
	data1, ok := response1.Data.(float64)
	if !ok {
		t.Fatalf("Cannot cast data in response 1 to float64")
	}

	if data1 != expectedData1 {
		t.Errorf("Expected data %f to equal %f", data1, expectedData1)
	}

	expectedEvent2 := "playback-restart"
	event2 := response2.Event
	if event2 != expectedEvent2 {
		t.Errorf("Expected event %s to equal %s", event2, expectedEvent2)
	}
}
