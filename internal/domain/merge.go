package domain

// MergeTickets unions batches, deduplicating by ticket name. The last copy
// of a name wins; output keeps the order in which names were first seen.
func MergeTickets(batches ...[]Ticket) []Ticket {
	index := make(map[string]int)
	merged := []Ticket{}
	for _, batch := range batches {
		for _, ticket := range batch {
			if pos, ok := index[ticket.Name]; ok {
				merged[pos] = ticket
				continue
			}
			index[ticket.Name] = len(merged)
			merged = append(merged, ticket)
		}
	}
	return merged
}
