package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// BookState is a book's cash and positions at one point of a run.
type BookState struct {
	Book         string                     `yaml:"book" json:"book"`
	Denomination string                     `yaml:"denomination" json:"denomination"`
	Cash         decimal.Decimal            `yaml:"cash" json:"cash"`
	Positions    map[string]decimal.Decimal `yaml:"positions" json:"positions"`
}

// RunResult is everything a run produced. A run stopped by a fatal error carries the
// histories accumulated until it stopped.
type RunResult struct {
	RunID string `yaml:"run_id" json:"run_id"`
	// StartTime and EndTime bound the replayed timeline.
	StartTime time.Time `yaml:"start_time" json:"start_time"`
	EndTime   time.Time `yaml:"end_time" json:"end_time"`
	// StepsCompleted counts timesteps whose valuation snapshot was taken.
	StepsCompleted int      `yaml:"steps_completed" json:"steps_completed"`
	TotalSteps     int      `yaml:"total_steps" json:"total_steps"`
	Strategies     []string `yaml:"strategies" json:"strategies"`
	// InitialBooks and FinalBooks are in configuration order.
	InitialBooks []BookState `yaml:"initial_books" json:"initial_books"`
	FinalBooks   []BookState `yaml:"final_books" json:"final_books"`
	// InitialValuations values the initial books at the first close.
	InitialValuations []BookValuation `yaml:"initial_valuations" json:"initial_valuations"`
	// Transactions in execution order.
	Transactions []Transaction `yaml:"transactions" json:"transactions"`
	// BookHistory holds one valuation per book per completed step, books in configuration order.
	BookHistory []BookValuation `yaml:"book_history" json:"book_history"`
	// Orders in submission order.
	Orders []OrderRecord `yaml:"orders" json:"orders"`
	Marks  []Mark        `yaml:"marks" json:"marks"`
}

// Order returns the latest record submitted under key by strategy.
func (r *RunResult) Order(strategy, key string) optional.Option[OrderRecord] {
	for i := len(r.Orders) - 1; i >= 0; i-- {
		if r.Orders[i].Strategy == strategy && r.Orders[i].Key == key {
			return optional.Some(r.Orders[i])
		}
	}

	return optional.None[OrderRecord]()
}

// TransactionsOf returns the transactions of one book.
func (r *RunResult) TransactionsOf(book string) []Transaction {
	var transactions []Transaction

	for _, tx := range r.Transactions {
		if tx.Book == book {
			transactions = append(transactions, tx)
		}
	}

	return transactions
}

// HistoryOf returns the valuation history of one book.
func (r *RunResult) HistoryOf(book string) []BookValuation {
	var history []BookValuation

	for _, valuation := range r.BookHistory {
		if valuation.Book == book {
			history = append(history, valuation)
		}
	}

	return history
}

// FinalBook returns the final state of one book.
func (r *RunResult) FinalBook(book string) optional.Option[BookState] {
	for _, state := range r.FinalBooks {
		if state.Book == book {
			return optional.Some(state)
		}
	}

	return optional.None[BookState]()
}

// OrderStatusCounts counts orders by status.
func (r *RunResult) OrderStatusCounts() map[OrderStatus]int {
	counts := make(map[OrderStatus]int)
	for _, record := range r.Orders {
		counts[record.Status]++
	}

	return counts
}
