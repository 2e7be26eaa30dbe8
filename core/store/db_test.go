package store

import "testing"

func TestRebindNumbersPostgresPlaceholders(t *testing.T) {
	q := `INSERT INTO report_seq_counters(year, seq) VALUES(?, 1)
		ON CONFLICT (year) DO UPDATE SET seq = report_seq_counters.seq + 1
		RETURNING seq`
	got := rebind(driverPostgres, q)
	want := `INSERT INTO report_seq_counters(year, seq) VALUES($1, 1)
		ON CONFLICT (year) DO UPDATE SET seq = report_seq_counters.seq + 1
		RETURNING seq`
	if got != want {
		t.Fatalf("rebind mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestRebindSkipsQuotedLiterals(t *testing.T) {
	q := `UPDATE occurrences SET summary='any ? here', narrative=? WHERE id=?`
	got := rebind(driverPostgres, q)
	want := `UPDATE occurrences SET summary='any ? here', narrative=$1 WHERE id=$2`
	if got != want {
		t.Fatalf("rebind mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestRebindLeavesSQLiteUntouched(t *testing.T) {
	q := `SELECT id FROM users WHERE username=? AND active=?`
	if got := rebind(driverSQLite, q); got != q {
		t.Fatalf("sqlite query rewritten: %q", got)
	}
}
