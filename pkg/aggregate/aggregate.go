package aggregate

import (
	"sort"

	"github.com/stgy/notifier/pkg/types"
)

// MergeUser applies one acting-user record to a user-centric aggregate and
// returns the merged result. Records deduplicate on userId: an incoming
// record strictly newer than the stored one replaces it, anything else
// leaves the aggregate untouched, so replays are no-ops. Records stay
// sorted by ts descending with ties keeping insertion order, and the list
// is truncated to cap entries. CountUsers increments whenever the incoming
// user is absent from the retained records, approximating distinct-ever
// membership.
func MergeUser(agg types.UserAggregate, rec types.UserRecord, cap int) types.UserAggregate {
	idx := -1
	for i, r := range agg.Records {
		if r.UserID == rec.UserID {
			idx = i
			break
		}
	}

	if idx >= 0 && agg.Records[idx].TS >= rec.TS {
		return agg
	}

	records := make([]types.UserRecord, 0, len(agg.Records)+1)
	for i, r := range agg.Records {
		if i != idx {
			records = append(records, r)
		}
	}
	records = append(records, rec)

	sort.SliceStable(records, func(i, j int) bool { return records[i].TS > records[j].TS })
	if cap > 0 && len(records) > cap {
		records = records[:cap]
	}

	out := types.UserAggregate{CountUsers: agg.CountUsers, Records: records}
	if idx < 0 {
		out.CountUsers++
	}
	return out
}

// MergePost applies one record to a post-centric aggregate. With keyByPost
// set, records deduplicate on (userId, postId) and CountPosts tracks
// distinct posts; otherwise the key is userId alone and CountPosts stays
// untouched. Refresh, ordering, cap, and counting behave as in MergeUser.
func MergePost(agg types.PostAggregate, rec types.PostRecord, keyByPost bool, cap int) types.PostAggregate {
	idx := -1
	for i, r := range agg.Records {
		if r.UserID == rec.UserID && (!keyByPost || r.PostID == rec.PostID) {
			idx = i
			break
		}
	}

	if idx >= 0 && agg.Records[idx].TS >= rec.TS {
		return agg
	}

	newUser := true
	newPost := true
	for _, r := range agg.Records {
		if r.UserID == rec.UserID {
			newUser = false
		}
		if r.PostID == rec.PostID {
			newPost = false
		}
	}

	records := make([]types.PostRecord, 0, len(agg.Records)+1)
	for i, r := range agg.Records {
		if i != idx {
			records = append(records, r)
		}
	}
	records = append(records, rec)

	sort.SliceStable(records, func(i, j int) bool { return records[i].TS > records[j].TS })
	if cap > 0 && len(records) > cap {
		records = records[:cap]
	}

	out := types.PostAggregate{CountUsers: agg.CountUsers, CountPosts: agg.CountPosts, Records: records}
	if newUser {
		out.CountUsers++
	}
	if keyByPost && newPost {
		out.CountPosts++
	}
	return out
}

// UserNickname returns the nickname cached in user records for userID
func UserNickname(recs []types.UserRecord, userID string) (string, bool) {
	for _, r := range recs {
		if r.UserID == userID {
			return r.UserNickname, true
		}
	}
	return "", false
}

// PostUserNickname returns the nickname cached in post records for userID
func PostUserNickname(recs []types.PostRecord, userID string) (string, bool) {
	for _, r := range recs {
		if r.UserID == userID {
			return r.UserNickname, true
		}
	}
	return "", false
}

// PostSnippet returns the snippet cached in post records for postID
func PostSnippet(recs []types.PostRecord, postID string) (string, bool) {
	for _, r := range recs {
		if r.PostID == postID {
			return r.PostSnippet, true
		}
	}
	return "", false
}
