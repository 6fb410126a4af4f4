// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import "testing"

func TestMarshalNotification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		notification Notification
		want         string
	}{
		{
			name: "insert",
			notification: Insert{
				Token:     "AQI=",
				Reference: SavedReference{Title: "My Grain", DateAdded: 1767225600000, AddedBy: "alice"},
			},
			want: `{"insert":{"token":"AQI=","data":{"title":"My Grain","date_added":"1767225600000","added_by":"alice"}}}`,
		},
		{
			name:         "remove",
			notification: Remove{Token: "AQI="},
			want:         `{"remove":{"token":"AQI="}}`,
		},
		{
			name:         "can write",
			notification: CanWrite(true),
			want:         `{"canWrite":true}`,
		},
		{
			name:         "cannot write",
			notification: CanWrite(false),
			want:         `{"canWrite":false}`,
		},
		{
			name:         "description escapes quotes",
			notification: Description(`say "hi"` + "\n"),
			want:         `{"description":"say \"hi\"\n"}`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got, err := MarshalNotification(test.notification)
			if err != nil {
				t.Fatalf("MarshalNotification: %v", err)
			}
			if string(got) != test.want {
				t.Errorf("got  %s\nwant %s", got, test.want)
			}
		})
	}
}
