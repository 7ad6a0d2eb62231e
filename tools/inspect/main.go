// Command inspect dumps the conversations and messages of a Badger directory.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"listing-chat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	kind := flag.String("kind", "conversations", "What to dump: conversations or messages")
	conversationID := flag.String("conversation", "", "Only dump the messages of this conversation")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := newTable()
	var rows int
	switch *kind {
	case "conversations":
		table.SetHeader([]string{"Id", "Listing", "Inquirer", "Owner", "Created at"})
		rows, err = scan(db, table, repositories.ConversationPrefix, func(val []byte) ([]string, error) {
			c, err := repositories.DecodeConversation(val)
			if err != nil {
				return nil, err
			}
			return []string{c.ID, c.ListingID, c.InquirerID, c.OwnerID, c.CreatedAt.Format("2006-01-02 15:04:05")}, nil
		})
	case "messages":
		prefix := repositories.MessagePrefix
		if *conversationID != "" {
			prefix += *conversationID + ":"
		}
		table.SetHeader([]string{"Conversation", "Sender", "Time", "Content"})
		rows, err = scan(db, table, prefix, func(val []byte) ([]string, error) {
			m, err := repositories.DecodeMessage(val)
			if err != nil {
				return nil, err
			}
			return []string{m.ConversationID, m.SenderID, m.CreatedAt.Format("15:04:05.000"), m.Content}, nil
		})
	default:
		log.Fatalf("Unknown kind %q", *kind)
	}
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	fmt.Printf("%d rows\n", rows)
}

func newTable() *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

// scan appends one row per record under prefix. Undecodable values are
// reported and skipped.
func scan(db *badger.DB, table *tablewriter.Table, prefix string, row func(val []byte) ([]string, error)) (int, error) {
	var rows int
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				cells, err := row(v)
				if err != nil {
					fmt.Printf("Error decoding key %s: %v\n", string(item.Key()), err)
					return nil
				}
				table.Append(cells)
				rows++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return rows, err
}
