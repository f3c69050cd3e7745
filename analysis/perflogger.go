// Package analysis samples performance figures from a running scheduler and
// logs them for plotting: how deep the ready queue sat, and when.
package analysis

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/sarchlab/schedsim/sched"
	"github.com/tebeka/atexit"
)

// PerfEntry is a single entry in the performance log.
type PerfEntry struct {
	Start sched.VTime
	End   sched.VTime
	Where string
	What  string
	Value float64
	Unit  string
}

// PerfLogger is the interface that provides the service that can record
// performance data entries.
type PerfLogger interface {
	AddDataEntry(entry PerfEntry)
	Flush()
}

// CSVBackend is a PerfLogger that writes data entries to a CSV file.
type CSVBackend struct {
	dbFile    *os.File
	csvWriter *csv.Writer
}

// NewCSVBackend creates a CSVBackend writing to filename + ".csv".
func NewCSVBackend(filename string) *CSVBackend {
	p := &CSVBackend{}

	var err error
	p.dbFile, err = os.OpenFile(filename+".csv",
		os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		panic(err)
	}

	p.csvWriter = csv.NewWriter(p.dbFile)

	header := []string{"Start", "End", "Where", "What", "Value", "Unit"}
	err = p.csvWriter.Write(header)
	if err != nil {
		panic(err)
	}

	atexit.Register(func() { p.Flush() })

	return p
}

// AddDataEntry adds a data entry to the CSV file.
func (p *CSVBackend) AddDataEntry(entry PerfEntry) {
	err := p.csvWriter.Write([]string{
		fmt.Sprintf("%.10f", entry.Start),
		fmt.Sprintf("%.10f", entry.End),
		entry.Where,
		entry.What,
		fmt.Sprintf("%.10f", entry.Value),
		entry.Unit,
	})
	if err != nil {
		panic(err)
	}
}

// Flush flushes the CSV writer.
func (p *CSVBackend) Flush() {
	p.csvWriter.Flush()
}

// SQLiteBackend is a PerfLogger that writes data entries to a SQLite
// database.
type SQLiteBackend struct {
	*sql.DB
	statement *sql.Stmt

	batchSize int
	entries   []PerfEntry
}

// NewSQLiteBackend creates a SQLiteBackend writing to filename + ".sqlite3".
func NewSQLiteBackend(filename string) *SQLiteBackend {
	p := &SQLiteBackend{
		batchSize: 50000,
	}

	p.createDatabase(filename + ".sqlite3")
	p.prepareStatement()

	atexit.Register(func() {
		p.Flush()
		err := p.Close()
		if err != nil {
			panic(err)
		}
	})

	return p
}

// AddDataEntry buffers one entry, flushing when the batch fills.
func (p *SQLiteBackend) AddDataEntry(entry PerfEntry) {
	p.entries = append(p.entries, entry)
	if len(p.entries) >= p.batchSize {
		p.Flush()
	}
}

// Flush writes the buffered entries into the database.
func (p *SQLiteBackend) Flush() {
	if len(p.entries) == 0 {
		return
	}

	tx, err := p.Begin()
	if err != nil {
		panic(err)
	}

	defer func() {
		innerErr := tx.Commit()
		if innerErr != nil {
			panic(innerErr)
		}
	}()

	for _, entry := range p.entries {
		_, err = tx.Stmt(p.statement).Exec(
			float64(entry.Start),
			float64(entry.End),
			entry.Where,
			entry.What,
			entry.Value,
			entry.Unit,
		)
		if err != nil {
			panic(err)
		}
	}

	p.entries = p.entries[:0]
}

func (p *SQLiteBackend) createDatabase(dbFilename string) {
	var err error

	_, err = os.Stat(dbFilename)
	if err == nil {
		err = os.Remove(dbFilename)
		if err != nil {
			panic(err)
		}
	}

	p.DB, err = sql.Open("sqlite3", dbFilename)
	if err != nil {
		panic(err)
	}

	p.createTable()
}

func (p *SQLiteBackend) createTable() {
	sqlStmt := `
	CREATE TABLE perf (
		id INTEGER NOT NULL PRIMARY KEY,
		start REAL,
		finish REAL,
		location TEXT,
		what TEXT,
		value REAL,
		unit TEXT
	);
	`

	_, err := p.Exec(sqlStmt)
	if err != nil {
		panic(err)
	}
}

func (p *SQLiteBackend) prepareStatement() {
	stmt, err := p.Prepare(`INSERT INTO perf
		(start, finish, location, what, value, unit)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		panic(err)
	}

	p.statement = stmt
}
