// Command dropwatch watches a Dropbox shared folder and posts a Lark card
// when new or changed files appear. Each `dropwatch run` is one tick; cron or
// a systemd timer decides when ticks happen.
package main
