package arp

import "testing"

func BenchmarkProcess(b *testing.B) {
	p := DefaultParams()
	p.ArpMode = ArpBounce
	p.OctaveSpread = 3
	p.OctaveMode = OctaveUpDown
	p.Divisions = 16
	a, err := New(48000, p)
	if err != nil {
		b.Fatal(err)
	}
	in := []Event{NoteOn(0, 60, 100), NoteOn(0, 64, 100), NoteOn(0, 67, 100), NoteOn(0, 71, 100)}
	a.Process(0, p, nil, in, NewBuffer(0))

	out := NewBuffer(256)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		out.Reset()
		a.Process(512, p, nil, nil, out)
	}
}
